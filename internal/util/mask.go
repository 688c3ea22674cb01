package util

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	cstr "github.com/shopmonkeyus/go-common/string"
)

// MaskURL returns a masked version of the snapshot URL, hiding the credentials, the database name and the
// query parameters.
func MaskURL(urlString string) (string, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme == "file" {
		return urlString, nil
	}
	var str strings.Builder
	str.WriteString(u.Scheme)
	str.WriteString("://")
	if u.User != nil {
		str.WriteString(cstr.Mask(u.User.Username()))
		if pass, ok := u.User.Password(); ok {
			str.WriteString(":")
			str.WriteString(cstr.Mask(pass))
		}
		str.WriteString("@")
	}
	str.WriteString(u.Host)
	if p := u.Path; p != "/" && p != "" {
		str.WriteString("/")
		if len(p) > 1 && p[0] == '/' {
			str.WriteString(cstr.Mask(p[1:]))
		}
	}
	var qs []string
	for k, v := range u.Query() {
		qs = append(qs, fmt.Sprintf("%s=%s", k, cstr.Mask(strings.Join(v, ","))))
	}
	sort.Strings(qs)
	if len(qs) > 0 {
		str.WriteString("?")
		str.WriteString(strings.Join(qs, "&"))
	}
	return str.String(), nil
}

// MaskEmail masks the email address attempting to hide sensitive information.
func MaskEmail(val string) string {
	tok := strings.SplitN(val, "@", 2)
	if len(tok) != 2 {
		return cstr.Mask(val)
	}
	dot := strings.Split(tok[1], ".")
	return cstr.Mask(tok[0]) + "@" + cstr.Mask(dot[0]) + "." + strings.Join(dot[1:], ".")
}

// MaskValue masks a cell value before it is echoed in a log line or an error.
func MaskValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "<nil>"
	case string:
		if isEmail.MatchString(v) {
			return MaskEmail(v)
		}
		return cstr.Mask(v)
	}
	return cstr.Mask(fmt.Sprintf("%v", val))
}

var isURL = regexp.MustCompile(`^(\w+)://`)
var isEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func maskArgument(arg string) string {
	if isURL.MatchString(arg) {
		if u, err := MaskURL(arg); err == nil {
			return u
		}
		return cstr.Mask(arg)
	}
	if isEmail.MatchString(arg) {
		return MaskEmail(arg)
	}
	return arg
}

// MaskArguments masks the URLs and emails of the command line, including --flag=value forms.
func MaskArguments(args []string) []string {
	masked := make([]string, len(args))
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			if name, val, ok := strings.Cut(arg, "="); ok {
				masked[i] = name + "=" + maskArgument(val)
				continue
			}
		}
		masked[i] = maskArgument(arg)
	}
	return masked
}
