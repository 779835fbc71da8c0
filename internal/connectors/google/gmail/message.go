package gmail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// BuildRaw encodes msg as a base64url RFC 2822 message for users.messages.send.
func BuildRaw(from, to string, msg driven.Message) string {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))

	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

// parseMailto strips the mailto: scheme and validates the address list.
func parseMailto(destination string) (string, bool) {
	addr, ok := strings.CutPrefix(destination, Scheme+":")
	if !ok {
		return "", false
	}
	addr = strings.TrimSpace(addr)
	if addr == "" || !strings.Contains(addr, "@") || strings.ContainsAny(addr, "\r\n") {
		return "", false
	}
	return addr, true
}
