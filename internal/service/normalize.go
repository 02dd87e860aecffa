package service

import "strings"

// Normalization applied before any comparison or storage: e-mails are
// lowercased and trimmed, documents and phones keep digits only, free text
// is trimmed and state codes are uppercased.

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// localPart derives the login handle from the e-mail.
func localPart(email string) string {
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email
	}
	return email[:at]
}

// nullable maps an empty optional field to SQL null.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
