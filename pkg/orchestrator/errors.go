package orchestrator

import "encoding/json"

type errorDetail struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type errorBody struct {
	Errors []errorDetail `json:"errors"`
}

func mustMarshalErrorBody(d errorDetail) string {
	b, err := json.Marshal(errorBody{Errors: []errorDetail{d}})
	if err != nil {
		// d's fields are all static string literals at every call site;
		// this can only fail if json.Marshal itself is broken.
		panic(err)
	}
	return string(b)
}

var (
	unauthorizedBody = mustMarshalErrorBody(errorDetail{
		Status: "401",
		Title:  "Unauthorized",
		Detail: "Authentication credentials were missing, incorrect or expired. Please provide a valid access token.",
	})
	forbiddenBody = mustMarshalErrorBody(errorDetail{
		Status: "403",
		Title:  "Forbidden",
		Detail: "You do not have permission to access this resource.",
	})
	tooManyRequestsBody = mustMarshalErrorBody(errorDetail{
		Status: "429",
		Title:  "Too Many Requests",
		Detail: "You have exceeded your rate limit. Please try your request again later.",
	})
)
