package services

import (
	"errors"
	"fmt"
	"strings"

	"hightech/internal/models"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInquiry is returned when an inquiry misses required fields.
var ErrInvalidInquiry = errors.New("invalid inquiry")

// InquiryService accepts design inquiries and printing quote requests and forwards them
// to the event bus. Nothing is stored.
type InquiryService struct {
	publisher EventPublisher
	validate  *validator.Validate
}

// NewInquiryService creates a new InquiryService. publisher may be nil.
func NewInquiryService(publisher EventPublisher) *InquiryService {
	return &InquiryService{
		publisher: publisher,
		validate:  validator.New(),
	}
}

// SubmitDesignInquiry validates and forwards a custom design request.
func (s *InquiryService) SubmitDesignInquiry(in models.DesignInquiry) error {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInquiry, err)
	}
	publishEvent(s.publisher, EventDesignInquiry, in)
	return nil
}

// SubmitPrintQuote validates and forwards a printing quote request.
func (s *InquiryService) SubmitPrintQuote(in models.PrintQuote) error {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInquiry, err)
	}
	publishEvent(s.publisher, EventPrintQuote, in)
	return nil
}
