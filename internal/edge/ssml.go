package edge

import (
	"fmt"
	"strings"
)

// FormatRate encodes a percent rate adjustment with an explicit sign,
// e.g. 10 -> "+10%", -5 -> "-5%", 0 -> "+0%".
func FormatRate(rate int) string {
	return fmt.Sprintf("%+d%%", rate)
}

// FormatPitch encodes a Hz pitch adjustment with an explicit sign,
// e.g. 0 -> "+0Hz".
func FormatPitch(pitch int) string {
	return fmt.Sprintf("%+dHz", pitch)
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// buildSSML wraps text in the speak/voice/prosody document the read-aloud
// endpoint expects. rate and pitch must already carry explicit signs.
func buildSSML(text, voiceShortName, rate, pitch string) string {
	var b strings.Builder
	b.WriteString(`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>`)
	fmt.Fprintf(&b, `<voice name='%s'>`, voiceShortName)
	fmt.Fprintf(&b, `<prosody pitch='%s' rate='%s' volume='+0%%'>`, pitch, rate)
	b.WriteString(ssmlEscaper.Replace(text))
	b.WriteString(`</prosody></voice></speak>`)
	return b.String()
}
