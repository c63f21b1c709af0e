package lookup

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/entrhq/postal-lookup/pkg/normalize"
)

var validate = validator.New()

// Request is one postal-code lookup.
type Request struct {
	Commune string `json:"commune" validate:"required"`
	Street  string `json:"street" validate:"required"`
	Number  string `json:"number" validate:"required"`
}

// Validate checks that every field is non-empty after normalization, so a
// field made only of whitespace or accent marks is rejected.
func (r Request) Validate() error {
	if err := validate.Struct(r.Normalized()); err != nil {
		return &Error{Kind: KindInvalidArguments, Message: "invalid request", Err: err}
	}
	return nil
}

// Normalized returns the request with every field passed through
// normalize.Text.
func (r Request) Normalized() Request {
	return Request{
		Commune: normalize.Text(r.Commune),
		Street:  normalize.Text(r.Street),
		Number:  normalize.Text(r.Number),
	}
}

// Result holds either a postal code or an error message, never both.
// Build it with Success or Failure.
type Result struct {
	postalCode string
	message    string
	failed     bool
}

// Success returns a result carrying a postal code.
func Success(postalCode string) Result {
	return Result{postalCode: postalCode}
}

// Failure returns a result carrying an error message.
func Failure(message string) Result {
	return Result{message: message, failed: true}
}

// OK reports whether the lookup produced a postal code.
func (r Result) OK() bool { return !r.failed }

// PostalCode returns the postal code and whether the result is a success.
func (r Result) PostalCode() (string, bool) {
	return r.postalCode, !r.failed
}

// ErrorMessage returns the error message and whether the result is a failure.
func (r Result) ErrorMessage() (string, bool) {
	return r.message, r.failed
}

// MarshalJSON emits {"postalCode": ...} or {"error": ...}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.failed {
		return json.Marshal(map[string]string{"error": r.message})
	}
	return json.Marshal(map[string]string{"postalCode": r.postalCode})
}

// UnmarshalJSON accepts exactly one of postalCode or error.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		PostalCode *string `json:"postalCode"`
		Error      *string `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.PostalCode != nil && raw.Error != nil:
		return errors.New("result holds both postalCode and error")
	case raw.PostalCode != nil:
		*r = Success(*raw.PostalCode)
	case raw.Error != nil:
		*r = Failure(*raw.Error)
	default:
		return errors.New("result holds neither postalCode nor error")
	}
	return nil
}

// PortletID identifies the postal-code portlet on the Correos page. Element
// ids and form parameters are prefixed with "_" + PortletID + "_".
const PortletID = "cl_cch_codigopostal_portlet_CodigoPostalPortlet_INSTANCE_MloJQpiDsCw9"

// DefaultURL is the public postal-code lookup page.
const DefaultURL = "https://www.correos.cl/codigo-postal"

// Selectors locates the form controls on the lookup page.
type Selectors struct {
	Commune         string `yaml:"commune" json:"commune" validate:"required"`
	Street          string `yaml:"street" json:"street" validate:"required"`
	Number          string `yaml:"number" json:"number" validate:"required"`
	ValidationLabel string `yaml:"validation_label" json:"validation_label" validate:"required"`
	SearchButton    string `yaml:"search_button" json:"search_button" validate:"required"`
	Result          string `yaml:"result" json:"result" validate:"required"`
}

// DefaultSelectors returns the selectors of the Correos page.
func DefaultSelectors() Selectors {
	ns := "#_" + PortletID + "_"
	return Selectors{
		Commune:         "input#mini-search-form-text",
		Street:          "input#mini-search-form-text-direcciones",
		Number:          ns + "numero",
		ValidationLabel: "label[for='mini-search-form-text']",
		SearchButton:    ns + "searchDirection",
		Result:          ns + "ddCodPostal",
	}
}

// Timeouts bounds the waits that gate correctness.
type Timeouts struct {
	Navigation time.Duration
	Selector   time.Duration
	Result     time.Duration
}

// Options configures a Controller.
type Options struct {
	URL            string
	Selectors      Selectors
	Timeouts       Timeouts
	PollAttempts   int
	PollInterval   time.Duration
	MaxRetries     int
	ScreenshotPath string
	Pacing         Pacing
}

// DefaultOptions returns the options matching the live page.
func DefaultOptions() Options {
	return Options{
		URL:       DefaultURL,
		Selectors: DefaultSelectors(),
		Timeouts: Timeouts{
			Navigation: 30 * time.Second,
			Selector:   20 * time.Second,
			Result:     15 * time.Second,
		},
		PollAttempts:   20,
		PollInterval:   500 * time.Millisecond,
		MaxRetries:     2,
		ScreenshotPath: "error.png",
		Pacing:         DefaultPacing(),
	}
}
