package course

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/trezcool/moodlegw/core"
	"github.com/trezcool/moodlegw/core/moodle"
)

const tokenParam = "token"

// AddFileToken returns `fileURL` carrying a `token` query parameter.
// A URL that already has one is returned unchanged; a #fragment stays last.
func AddFileToken(fileURL, token string) string {
	base, fragment := fileURL, ""
	if i := strings.IndexByte(fileURL, '#'); i >= 0 {
		base, fragment = fileURL[:i], fileURL[i:]
	}
	if hasTokenParam(base) {
		return fileURL
	}

	sep := "?"
	switch {
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
		sep = ""
	case strings.Contains(base, "?"):
		sep = "&"
	}
	return base + sep + tokenParam + "=" + url.QueryEscape(token) + fragment
}

func hasTokenParam(u string) bool {
	i := strings.IndexByte(u, '?')
	if i < 0 {
		return false
	}
	for _, kv := range strings.Split(u[i+1:], "&") {
		if j := strings.IndexByte(kv, '='); j >= 0 {
			kv = kv[:j]
		}
		if key, err := url.QueryUnescape(kv); err == nil && key == tokenParam {
			return true
		}
	}
	return false
}

// tokenizeContents adds the file token to every sections[].modules[].contents[].fileurl.
// Numbers and unknown fields are kept as received.
func tokenizeContents(payload json.RawMessage, token string) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var sections []interface{}
	if err := dec.Decode(&sections); err != nil {
		return nil, core.NewUnexpectedShapeError(moodle.FuncGetContents, payload)
	}

	for _, sec := range sections {
		for _, mod := range children(sec, "modules") {
			for _, content := range children(mod, "contents") {
				file, ok := content.(map[string]interface{})
				if !ok {
					continue
				}
				if fu, ok := file["fileurl"].(string); ok && fu != "" {
					file["fileurl"] = AddFileToken(fu, token)
				}
			}
		}
	}

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false) // keep `&` readable in URLs
	if sections == nil {
		sections = []interface{}{}
	}
	if err := enc.Encode(sections); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func children(node interface{}, key string) []interface{} {
	obj, ok := node.(map[string]interface{})
	if !ok {
		return nil
	}
	list, _ := obj[key].([]interface{})
	return list
}
