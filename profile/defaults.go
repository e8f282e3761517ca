package profile

import "maps"

// Preference keys the Profile helpers write to.
const (
	PrefNativeEvents          = "webdriver_enable_native_events"
	PrefAcceptUntrustedCerts  = "webdriver_accept_untrusted_certs"
	PrefAssumeUntrustedIssuer = "webdriver_assume_untrusted_issuer"

	PrefProxyType          = "network.proxy.type"
	PrefProxyAutoconfigURL = "network.proxy.autoconfig_url"
	PrefProxyNoProxiesOn   = "network.proxy.no_proxies_on"
)

// defaultPreferences turn off everything that would make an unattended
// browser stall or phone home: update checks, telemetry, first-run
// pages and security prompts.
var defaultPreferences = map[string]Value{
	"app.update.auto":                                   Bool(false),
	"app.update.enabled":                                Bool(false),
	"browser.EULA.3.accepted":                           Bool(true),
	"browser.EULA.override":                             Bool(true),
	"browser.dom.window.dump.enabled":                   Bool(true),
	"browser.download.manager.showWhenStarting":         Bool(false),
	"browser.laterrun.enabled":                          Bool(false),
	"browser.link.open_external":                        Int(2),
	"browser.link.open_newwindow":                       Int(2),
	"browser.newtab.url":                                String("about:blank"),
	"browser.newtabpage.enabled":                        Bool(false),
	"browser.offline":                                   Bool(false),
	"browser.safebrowsing.enabled":                      Bool(false),
	"browser.safebrowsing.malware.enabled":              Bool(false),
	"browser.search.update":                             Bool(false),
	"browser.sessionstore.resume_from_crash":            Bool(false),
	"browser.shell.checkDefaultBrowser":                 Bool(false),
	"browser.startup.homepage":                          String("about:blank"),
	"browser.startup.page":                              Int(0),
	"browser.tabs.warnOnClose":                          Bool(false),
	"browser.tabs.warnOnOpen":                           Bool(false),
	"browser.usedOnWindows10.introURL":                  String("about:blank"),
	"datareporting.healthreport.logging.consoleEnabled": Bool(false),
	"datareporting.healthreport.service.enabled":        Bool(false),
	"datareporting.healthreport.service.firstRun":       Bool(false),
	"datareporting.healthreport.uploadEnabled":          Bool(false),
	"datareporting.policy.dataSubmissionEnabled":        Bool(false),
	"datareporting.policy.dataSubmissionPolicyAccepted": Bool(false),
	"devtools.errorconsole.enabled":                     Bool(true),
	"dom.disable_open_during_load":                      Bool(false),
	"dom.max_chrome_script_run_time":                    Int(30),
	"dom.max_script_run_time":                           Int(30),
	"dom.report_all_js_exceptions":                      Bool(true),
	"extensions.autoDisableScopes":                      Int(10),
	"extensions.blocklist.enabled":                      Bool(false),
	"extensions.logging.enabled":                        Bool(true),
	"extensions.update.enabled":                         Bool(false),
	"extensions.update.notifyUser":                      Bool(false),
	"javascript.options.showInConsole":                  Bool(true),
	"network.captive-portal-service.enabled":            Bool(false),
	"network.http.phishy-userpass-length":               Int(255),
	"network.manage-offline-status":                     Bool(false),
	"offline-apps.allow_by_default":                     Bool(true),
	"prompts.tab_modal.enabled":                         Bool(false),
	"security.csp.enable":                               Bool(false),
	"security.fileuri.origin_policy":                    Int(3),
	"security.fileuri.strict_origin_policy":             Bool(false),
	"security.warn_entering_secure":                     Bool(false),
	"security.warn_entering_secure.show_once":           Bool(false),
	"security.warn_entering_weak":                       Bool(false),
	"security.warn_entering_weak.show_once":             Bool(false),
	"security.warn_leaving_secure":                      Bool(false),
	"security.warn_leaving_secure.show_once":            Bool(false),
	"security.warn_submit_insecure":                     Bool(false),
	"security.warn_viewing_mixed":                       Bool(false),
	"security.warn_viewing_mixed.show_once":             Bool(false),
	"signon.rememberSignons":                            Bool(false),
	"startup.homepage_welcome_url":                      String("about:blank"),
	"startup.homepage_welcome_url.additional":           String("about:blank"),
	"toolkit.networkmanager.disable":                    Bool(true),
	"toolkit.telemetry.enabled":                         Bool(false),
	"toolkit.telemetry.prompted":                        Int(2),
	"toolkit.telemetry.rejected":                        Bool(true),
	"xpinstall.signatures.required":                     Bool(false),
	"xpinstall.whitelist.required":                      Bool(false),
	PrefAcceptUntrustedCerts:                            Bool(true),
	PrefAssumeUntrustedIssuer:                           Bool(true),
	PrefNativeEvents:                                    Bool(true),
}

// DefaultPreferences returns a copy of the preferences every new
// store starts with.
func DefaultPreferences() map[string]Value {
	return maps.Clone(defaultPreferences)
}
