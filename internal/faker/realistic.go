package faker

import (
	"strings"
	"unicode"
)

var emailDomains = []string{"example.com", "example.net", "example.org"}

func (g *Generator) FirstName() string { return g.f.FirstName() }

func (g *Generator) LastName() string { return g.f.LastName() }

func (g *Generator) FullName() string { return g.f.FirstName() + " " + g.f.LastName() }

func (g *Generator) Username() string { return g.f.Username() }

func (g *Generator) Company() string { return g.f.Company() }

func (g *Generator) Street() string { return g.f.Street() }

func (g *Generator) City() string { return g.f.City() }

func (g *Generator) State() string { return g.f.State() }

func (g *Generator) Country() string { return g.f.Country() }

// PostalCode returns a postal code of the same shape as the original when it has one.
func (g *Generator) PostalCode(original string) string {
	if original == "" {
		return g.f.Zip()
	}
	return g.Shape(original)
}

// EmailFor returns an address whose local part is derived from name on a reserved example domain.
// An empty name produces a random local part.
func (g *Generator) EmailFor(name string) string {
	parts := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(unicode.IsLetter(r) && r < unicode.MaxASCII) && !unicode.IsDigit(r)
	})
	local := strings.Join(parts, ".")
	if local == "" {
		local = strings.ToLower(g.f.Lexify("????????"))
	}
	local += g.f.Numerify("##")
	return local + "@" + emailDomains[g.f.IntRange(0, len(emailDomains)-1)]
}

var callingCodes = map[string]string{
	"us":             "1",
	"usa":            "1",
	"united states":  "1",
	"ca":             "1",
	"canada":         "1",
	"fr":             "33",
	"france":         "33",
	"de":             "49",
	"germany":        "49",
	"gb":             "44",
	"uk":             "44",
	"united kingdom": "44",
	"es":             "34",
	"spain":          "34",
	"it":             "39",
	"italy":          "39",
	"au":             "61",
	"australia":      "61",
}

// knownCodes are matched longest first when replacing the calling code of a number.
var knownCodes = []string{"61", "49", "44", "39", "34", "33", "1"}

// CallingCode returns the international calling code of the country, or an empty string.
func CallingCode(country string) string {
	return callingCodes[strings.ToLower(strings.TrimSpace(country))]
}

// Phone returns a number in the same format as the original with every digit randomized. When the
// original is in international form and the country is known, its calling code is used as the prefix.
func (g *Generator) Phone(format string, country string) string {
	code := CallingCode(country)
	for i := 0; i < 5; i++ {
		var res string
		if code != "" && strings.HasPrefix(format, "+") {
			rest := format[1:]
			for _, c := range knownCodes {
				if strings.HasPrefix(rest, c) {
					rest = rest[len(c):]
					break
				}
			}
			res = "+" + code + g.digitize(rest)
		} else {
			res = g.digitize(format)
		}
		if res != format {
			return res
		}
	}
	return g.digitize(format) + g.Digits(1)
}

// digitize replaces every digit with a random one keeping a leading trunk zero.
func (g *Generator) digitize(s string) string {
	var sb strings.Builder
	first := true
	for _, r := range s {
		if r >= '0' && r <= '9' {
			if first && r == '0' {
				sb.WriteRune(r)
			} else if first {
				sb.WriteByte(byte('1' + g.f.IntRange(0, 8)))
			} else {
				sb.WriteByte(byte('0' + g.f.IntRange(0, 9)))
			}
			first = false
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
