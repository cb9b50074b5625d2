package mdhxml

import "encoding/xml"

// BuildRecordQueryRequest renders the XML body for a record query:
//
//	<RecordQueryRequest limit="L" offsetToken="T">
//	  <view><fieldId>F1</fieldId>...</view>
//	  [<filter op="AND">
//	     <fieldValue><fieldId>F</fieldId><operator>OP</operator><value>V</value></fieldValue>
//	     ...
//	   </filter>]
//	</RecordQueryRequest>
//
// filters is omitted from the body entirely when empty - an empty
// <filter> block is not the same as "no filter" to the hub.
func BuildRecordQueryRequest(fields []string, filters []FilterClause, limit int, offsetToken string) ([]byte, error) {
	req := recordQueryRequest{
		Limit:       limit,
		OffsetToken: offsetToken,
		View:        requestView{FieldIDs: fields},
	}

	if len(filters) > 0 {
		fvs := make([]requestFieldValue, len(filters))
		for i, f := range filters {
			fvs[i] = requestFieldValue{
				FieldID:  f.FieldID,
				Operator: f.Operator,
				Value:    f.Value,
			}
		}
		req.Filter = &requestFilter{Op: "AND", FieldValues: fvs}
	}

	body, err := xml.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
