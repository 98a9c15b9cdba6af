package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/diary-server/internal/http/response"
)

// EnvelopeVersion is sent as "v" in every response body.
const EnvelopeVersion = response.Version

// EnvelopeTransformer wraps every huma response body in the API envelope:
// {v, success, data} on success and {v, success, error, code, message,
// details} on failure.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch e := v.(type) {
	case response.Envelope:
		return e, nil
	case *APIError:
		return response.Fail(e.Code, e.Message, e.Details), nil
	case *huma.ErrorModel:
		// Only reached when huma.NewError was not replaced.
		return response.Fail(statusToCode(e.Status), e.Detail, e.Errors), nil
	case error:
		return response.Envelope{Version: EnvelopeVersion, Error: e.Error()}, nil
	}

	if strings.HasPrefix(status, "4") || strings.HasPrefix(status, "5") {
		return response.Envelope{Version: EnvelopeVersion, Data: v}, nil
	}
	return response.Ok(v), nil
}
