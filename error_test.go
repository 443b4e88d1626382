package restauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	var testCases = []struct {
		description string
		body        string
		expect      string
	}{
		{description: "empty body", body: "", expect: ""},
		{description: "plain text", body: "Bad Gateway\n", expect: "Bad Gateway"},
		{description: "detail", body: `{"detail":"Not found."}`, expect: "Not found."},
		{description: "non field errors", body: `{"non_field_errors":["Dates overlap.","Try again."]}`, expect: "Dates overlap. Try again."},
		{description: "field errors", body: `{"username":["This field is required."],"email":["Enter a valid email address."]}`, expect: "email: Enter a valid email address.; username: This field is required."},
		{description: "nested list", body: `{"amount":[["Must be positive."]]}`, expect: "amount: Must be positive."},
		{description: "empty object", body: `{}`, expect: "{}"},
		{description: "json array", body: `["oops"]`, expect: `["oops"]`},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, errorMessage([]byte(testCase.body)), testCase.description)
	}
}

func TestHTTPError_Error(t *testing.T) {
	err := &HTTPError{Method: "GET", URL: "http://api/orders/", StatusCode: 404, Message: "Not found."}
	assert.Equal(t, "GET http://api/orders/: status 404: Not found.", err.Error())
	assert.False(t, err.Unauthorized())
	err = &HTTPError{Method: "GET", URL: "http://api/orders/", StatusCode: 401}
	assert.Equal(t, "GET http://api/orders/: status 401", err.Error())
	assert.True(t, err.Unauthorized())
}
