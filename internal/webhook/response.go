package webhook

import (
	"encoding/json"
	"net/http"

	"puppethook/internal/rpc"
)

const (
	unauthenticatedMessage = "Sorry, this request can not be authenticated. Try again."
	signatureMismatchBody  = "Signatures didn't match!\n"
	statusIgnored          = "ignored"
)

// Response is what to send back for one request.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Write sends r to w.
func (r Response) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", r.ContentType)
	w.WriteHeader(r.StatusCode)
	w.Write(r.Body)
}

// DispatchOutcome is the JSON body returned after a dispatch.
type DispatchOutcome struct {
	Status      string           `json:"status"`
	Message     string           `json:"message"`
	Environment string           `json:"environment,omitempty"`
	Module      string           `json:"module,omitempty"`
	StatusCode  int              `json:"status_code"`
	Partial     bool             `json:"partial,omitempty"`
	Nodes       []rpc.NodeResult `json:"nodes,omitempty"`
	Stats       *rpc.Stats       `json:"stats,omitempty"`
}

type messageBody struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

func jsonResponse(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		return textResponse(http.StatusInternalServerError, "failed to encode response\n")
	}
	return Response{StatusCode: status, ContentType: "application/json", Body: body}
}

func textResponse(status int, text string) Response {
	return Response{StatusCode: status, ContentType: "text/plain; charset=utf-8", Body: []byte(text)}
}

func unauthenticated() Response {
	return jsonResponse(http.StatusUnauthorized, messageBody{Message: unauthenticatedMessage})
}

func signatureMismatch() Response {
	return textResponse(http.StatusInternalServerError, signatureMismatchBody)
}

func ignored(reason string) Response {
	return jsonResponse(http.StatusOK, messageBody{Status: statusIgnored, Message: reason})
}

func badRequest(message string) Response {
	return jsonResponse(http.StatusBadRequest, messageBody{Message: message})
}
