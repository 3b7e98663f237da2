package checkout

import "strings"

// WhatsAppURL is the deep link that opens a chat with number and text
// prefilled. Only the first '+' of the number is dropped.
func WhatsAppURL(number, text string) string {
	return "https://api.whatsapp.com/send?phone=" + strings.Replace(number, "+", "", 1) +
		"&text=" + EncodeURIComponent(text)
}

// EncodeURIComponent percent-encodes s the way browsers do for a URI
// component: UTF-8 bytes, uppercase hex, and A-Z a-z 0-9 - _ . ! ~ * ' ( )
// left as is. url.QueryEscape differs on spaces and on ! ' ( ) *.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
