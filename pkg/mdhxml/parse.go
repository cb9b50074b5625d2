package mdhxml

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// DecodeRecordQueryResponse parses a RecordQueryResponse body, tolerating
// whatever namespace the hub happens to be serving under - elements are
// matched by local name only, so a namespaced root (<ns:RecordQueryResponse
// xmlns:ns="...">) decodes the same as a bare one. Record elements are
// located wherever they appear; recordId (attribute or child element)
// becomes RecordIDKey, every other leaf child becomes a field keyed by
// its upper-cased local name. resultCount, totalCount and offsetToken
// found outside any Record are lifted onto the Result.
func DecodeRecordQueryResponse(r io.Reader) (*Result, error) {
	dec := xml.NewDecoder(r)

	result := &Result{}

	var (
		inRecord    bool
		recordDepth int
		depth       int
		current     Record
		leafName    string
		leafText    strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			local := t.Name.Local

			if !inRecord && local == "Record" {
				inRecord = true
				recordDepth = depth
				current = Record{}
				for _, a := range t.Attr {
					if strings.EqualFold(a.Name.Local, "recordId") {
						current[RecordIDKey] = a.Value
					}
				}
			}

			leafName = local
			leafText.Reset()

		case xml.CharData:
			leafText.WriteString(string(t))

		case xml.EndElement:
			local := t.Name.Local
			value := strings.TrimSpace(leafText.String())

			if local == leafName {
				switch {
				case inRecord && depth == recordDepth+1:
					if strings.EqualFold(local, "recordId") {
						current[RecordIDKey] = value
					} else {
						current[strings.ToUpper(local)] = value
					}
				case !inRecord:
					switch strings.ToLower(local) {
					case "resultcount":
						if n, convErr := strconv.Atoi(value); convErr == nil {
							result.ResultCount = n
						}
					case "totalcount":
						if n, convErr := strconv.Atoi(value); convErr == nil {
							result.TotalCount = n
						}
					case "offsettoken":
						result.OffsetToken = value
					}
				}
			}
			leafText.Reset()

			if inRecord && local == "Record" && depth == recordDepth {
				result.Records = append(result.Records, current)
				current = nil
				inRecord = false
			}

			depth--
		}
	}

	if result.ResultCount == 0 && len(result.Records) > 0 {
		result.ResultCount = len(result.Records)
	}
	result.HasMore = result.ResultCount < result.TotalCount

	return result, nil
}
