package lms

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const poxNamespace = "http://www.imsglobal.org/services/ltiv1p1/xsd/imsoms_v1p0"

// replaceResultEnvelope is the imsx_POXEnvelopeRequest for replaceResult.
type replaceResultEnvelope struct {
	XMLName xml.Name  `xml:"imsx_POXEnvelopeRequest"`
	XMLNS   string    `xml:"xmlns,attr"`
	Header  poxHeader `xml:"imsx_POXHeader"`
	Body    poxBody   `xml:"imsx_POXBody"`
}

type poxHeader struct {
	Info poxRequestHeaderInfo `xml:"imsx_POXRequestHeaderInfo"`
}

type poxRequestHeaderInfo struct {
	Version           string `xml:"imsx_version"`
	MessageIdentifier string `xml:"imsx_messageIdentifier"`
}

type poxBody struct {
	ReplaceResult replaceResultRequest `xml:"replaceResultRequest"`
}

type replaceResultRequest struct {
	Record resultRecord `xml:"resultRecord"`
}

type resultRecord struct {
	SourcedGUID sourcedGUID `xml:"sourcedGUID"`
	Result      poxResult   `xml:"result"`
}

type sourcedGUID struct {
	SourcedID string `xml:"sourcedId"`
}

type poxResult struct {
	Score resultScore `xml:"resultScore"`
}

type resultScore struct {
	Language   string `xml:"language"`
	TextString string `xml:"textString"`
}

// buildReplaceResultBody renders the replaceResult POX envelope for one score
// on the LMS 0-1 scale.
func buildReplaceResultBody(sourcedid string, score float64, messageID string) ([]byte, error) {
	envelope := replaceResultEnvelope{
		XMLNS: poxNamespace,
		Header: poxHeader{
			Info: poxRequestHeaderInfo{
				Version:           "V1.0",
				MessageIdentifier: messageID,
			},
		},
		Body: poxBody{
			ReplaceResult: replaceResultRequest{
				Record: resultRecord{
					SourcedGUID: sourcedGUID{SourcedID: sourcedid},
					Result: poxResult{
						Score: resultScore{
							Language:   "en",
							TextString: strconv.FormatFloat(score, 'f', -1, 64),
						},
					},
				},
			},
		},
	}

	body, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// responseEnvelope is the subset of imsx_POXEnvelopeResponse we act on.
type responseEnvelope struct {
	XMLName xml.Name `xml:"imsx_POXEnvelopeResponse"`
	Header  struct {
		Info struct {
			StatusInfo struct {
				CodeMajor   string `xml:"imsx_codeMajor"`
				Description string `xml:"imsx_description"`
			} `xml:"imsx_statusInfo"`
		} `xml:"imsx_POXResponseHeaderInfo"`
	} `xml:"imsx_POXHeader"`
}

// parseResponseStatus extracts the imsx_codeMajor from a POX response.
func parseResponseStatus(r io.Reader) (string, error) {
	var envelope responseEnvelope
	if err := xml.NewDecoder(r).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decode response envelope: %w", err)
	}

	status := envelope.Header.Info.StatusInfo.CodeMajor
	if status == "" {
		return "", errors.New("response carried no imsx_codeMajor")
	}
	if desc := envelope.Header.Info.StatusInfo.Description; desc != "" && status != "success" {
		return fmt.Sprintf("%s (%s)", status, desc), nil
	}
	return status, nil
}
