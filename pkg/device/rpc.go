package device

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/newtron-network/confpush/pkg/job"
)

// Junos RPC bodies.
const (
	rpcLockConfiguration      = "<lock-configuration/>"
	rpcUnlockConfiguration    = "<unlock-configuration/>"
	rpcGetSoftwareInformation = "<get-software-information/>"
)

// loadConfigurationRPC builds a <load-configuration> request. Set-format
// commands use action="set"; text and XML are merged into the candidate.
func loadConfigurationRPC(text string, format job.Format) (string, error) {
	switch format {
	case job.FormatSet:
		return `<load-configuration action="set" format="text"><configuration-set>` +
			escape(text) + `</configuration-set></load-configuration>`, nil
	case job.FormatText:
		return `<load-configuration action="merge" format="text"><configuration-text>` +
			escape(text) + `</configuration-text></load-configuration>`, nil
	case job.FormatXML:
		return `<load-configuration action="merge" format="xml">` +
			strings.TrimSpace(text) + `</load-configuration>`, nil
	}
	return "", fmt.Errorf("unsupported load format %q", format)
}

// rollbackRPC loads rollback revision rev into the candidate.
func rollbackRPC(rev int) string {
	return fmt.Sprintf(`<load-configuration compare="rollback" rollback="%d"/>`, rev)
}

// diffRPC compares the candidate against rollback revision rev.
func diffRPC(rev int) string {
	return fmt.Sprintf(`<get-configuration compare="rollback" rollback="%d" format="text"/>`, rev)
}

func commitRPC(comment string) string {
	if comment == "" {
		return "<commit-configuration/>"
	}
	return "<commit-configuration><log>" + escape(comment) + "</log></commit-configuration>"
}

func escape(s string) string {
	var buf bytes.Buffer
	// EscapeText only fails on writer errors; bytes.Buffer has none.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// parseDiff extracts the configuration-output text of a compare reply. An
// empty result means the candidate matches the active configuration.
func parseDiff(data string) (string, error) {
	if strings.TrimSpace(data) == "" {
		return "", nil
	}
	var info struct {
		Output string `xml:"configuration-output"`
	}
	if err := decodeElement(data, "configuration-information", &info); err != nil {
		return "", fmt.Errorf("parsing configuration diff: %w", err)
	}
	return strings.Trim(info.Output, "\n"), nil
}

// decodeElement decodes the first element named local found anywhere in
// data into v. Sibling elements before it, such as warning rpc-errors, are
// skipped.
func decodeElement(data, local string, v any) error {
	d := xml.NewDecoder(strings.NewReader(data))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return fmt.Errorf("no <%s> element in reply", local)
		}
		if err != nil {
			return err
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == local {
			return d.DecodeElement(v, &se)
		}
	}
}
