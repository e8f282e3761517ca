package profile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	uerror "t0ast.cc/ffprofile/util/error"
	uio "t0ast.cc/ffprofile/util/io"
)

// Kind is the type of a preference value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a preference value: a boolean, a 64-bit integer or a
// string. The zero Value is invalid.
type Value struct {
	kind Kind
	b    bool
	i    int64
	s    string
}

func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func String(s string) Value { return Value{kind: KindString, s: s} }

// ValueOf converts a decoded configuration value (bool, any integer
// type, a float without fractional part, or string) to a Value.
func ValueOf(v any) (Value, error) {
	switch v := v.(type) {
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return uintValue(v)
	case float32:
		return floatValue(float64(v))
	case float64:
		return floatValue(v)
	default:
		return Value{}, newError(ErrValidation, "convert preference value", "", fmt.Errorf("unsupported type %T", v))
	}
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, newError(ErrValidation, "convert preference value", "", fmt.Errorf("%d overflows int64", u))
	}
	return Int(int64(u)), nil
}

func floatValue(f float64) (Value, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return Value{}, newError(ErrValidation, "convert preference value", "", fmt.Errorf("%v is not an integer", f))
	}
	return Int(int64(f)), nil
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsValid() bool {
	return v.kind != KindInvalid
}

// AsBool returns the boolean and whether v holds one.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt returns the integer and whether v holds one.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsString returns the string and whether v holds one.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// Literal returns v as it is written in a preference file.
func (v Value) Literal() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return quote(v.s)
	default:
		return ""
	}
}

func (v Value) String() string {
	return v.Literal()
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(s string) string {
	return `"` + literalEscaper.Replace(s) + `"`
}

func unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("%s is not a quoted string", s)
	}
	s = s[1 : len(s)-1]

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			return "", fmt.Errorf("unescaped quote in string literal")
		case '\\':
			i++
			if i == len(s) {
				return "", fmt.Errorf("string literal ends in a lone backslash")
			}
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(s[i])
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

// ParseLiteral parses a value as written in a preference file. A
// double-quoted literal is a string, true and false are booleans and a
// decimal integer is an integer. Anything else is rejected, so the
// type of a value never changes across a write and a read.
func ParseLiteral(raw string) (Value, error) {
	v, err := parseLiteral(raw)
	if err != nil {
		return Value{}, newError(ErrValidation, "parse preference value", "", err)
	}
	return v, nil
}

func parseLiteral(raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, `"`):
		s, err := unquote(raw)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case raw == "true":
		return Bool(true), nil
	case raw == "false":
		return Bool(false), nil
	}
	i, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("unsupported literal %q", raw)
	}
	return Int(i), nil
}

var userPrefRE = regexp.MustCompile(`^\s*user_pref\(\s*("(?:[^"\\]|\\.)*")\s*,\s*("(?:[^"\\]|\\.)*"|[^\s)]+)\s*\)\s*;\s*(?://.*)?$`)

// Preferences is a profile's preference store. It is not safe for
// concurrent use.
type Preferences struct {
	values   map[string]Value
	modified bool
}

// NewPreferences returns a store seeded with DefaultPreferences. The
// defaults count as modifications until the first Flush.
func NewPreferences() *Preferences {
	return &Preferences{values: DefaultPreferences(), modified: true}
}

// NewEmptyPreferences returns an unmodified store without defaults.
func NewEmptyPreferences() *Preferences {
	return &Preferences{values: make(map[string]Value)}
}

// Set stores a value, replacing defaults and loaded values alike.
func (p *Preferences) Set(key string, value Value) error {
	if key == "" {
		return newError(ErrValidation, "set preference", "", fmt.Errorf("empty key"))
	}
	if !value.IsValid() {
		return newError(ErrValidation, "set preference", key, fmt.Errorf("invalid value"))
	}
	p.values[key] = value
	p.modified = true
	return nil
}

// Get returns the value for key.
func (p *Preferences) Get(key string) (Value, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns all keys in sorted order.
func (p *Preferences) Keys() []string {
	return slices.Sorted(maps.Keys(p.values))
}

func (p *Preferences) Len() int {
	return len(p.values)
}

// Modified reports whether the store holds changes that the last
// successful Flush did not write.
func (p *Preferences) Modified() bool {
	return p.modified
}

// Load merges the preference file at path into the store. Loaded
// values override the current ones and leave Modified unchanged.
func (p *Preferences) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return newError(ErrIO, "load preferences from", path, err)
	}
	defer f.Close()
	if err := p.Read(f); err != nil {
		return newError(ErrIO, "load preferences from", path, err)
	}
	return nil
}

// Read merges user_pref lines from r. Lines that are not a single
// well-formed user_pref statement are skipped. Lines may be of any
// length.
func (p *Preferences) Read(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			key, value, ok := parseLine(strings.TrimRight(line, "\r\n"))
			if ok {
				p.values[key] = value
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return uerror.WithStackTrace(err)
		}
	}
}

func parseLine(line string) (string, Value, bool) {
	m := userPrefRE.FindStringSubmatch(line)
	if m == nil {
		return "", Value{}, false
	}
	key, err := unquote(m[1])
	if err != nil || key == "" {
		return "", Value{}, false
	}
	value, err := parseLiteral(m[2])
	if err != nil {
		return "", Value{}, false
	}
	return key, value, true
}

// WriteTo writes every preference as a user_pref line, sorted by key.
func (p *Preferences) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, key := range p.Keys() {
		written, err := fmt.Fprintf(bw, "user_pref(%s, %s);\n", quote(key), p.values[key].Literal())
		n += int64(written)
		if err != nil {
			return n, uerror.WithStackTrace(err)
		}
	}
	if err := bw.Flush(); err != nil {
		return n, uerror.WithStackTrace(err)
	}
	return n, nil
}

// Flush replaces the file at path with the full store. It does nothing
// when the store is not modified. The file is replaced atomically, so
// an interrupted flush leaves the previous file intact.
func (p *Preferences) Flush(path string) error {
	if !p.modified {
		return nil
	}

	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return newError(ErrIO, "write preferences to", path, err)
	}
	if err := writeFileAtomic(path, buf.Bytes(), uio.FileModeURWGRWO); err != nil {
		return newError(ErrIO, "write preferences to", path, err)
	}
	p.modified = false
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanUp := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanUp()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanUp()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanUp()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanUp()
		return err
	}
	return nil
}
