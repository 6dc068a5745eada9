package gemini

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"

	"github.com/oukeidos/mdtrans/internal/apperrors"
)

func classifyGeminiError(err error) error {
	if err == nil {
		return nil
	}

	wrapped := fmt.Errorf("gemini generate content failed: %w", err)

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401 || gerr.Code == 403:
			return apperrors.API(gerr.Code, "Gemini authentication failed", wrapped)
		case gerr.Code == 404:
			return apperrors.API(gerr.Code, "Gemini model not found or no access", wrapped)
		case gerr.Code == 429:
			return apperrors.API(gerr.Code, "Gemini quota exceeded", wrapped)
		case gerr.Code >= 500:
			return apperrors.API(gerr.Code, "Gemini service temporary error", wrapped)
		default:
			return apperrors.API(gerr.Code, "Gemini request rejected", wrapped)
		}
	}

	// DNS, socket and timeout failures.
	return apperrors.New(apperrors.KindTransport, "Gemini request failed due to a network error", wrapped)
}
