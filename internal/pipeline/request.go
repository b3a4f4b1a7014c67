package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/seenimoa/crossasset/internal/align"
	"github.com/seenimoa/crossasset/internal/catalog"
	"github.com/seenimoa/crossasset/internal/transform"
	"github.com/seenimoa/crossasset/pkg/models"
)

// MaxShiftMonths bounds the lead/lag shift in either direction.
const MaxShiftMonths = 24

// Request is one comparison: which series to load and how to transform them.
type Request struct {
	References  []string           `json:"references"   validate:"dive,required"`
	Assets      []string           `json:"assets"       validate:"dive,required"`
	Range       string             `json:"range"        default:"10y" validate:"oneof=1y 5y 10y 20y max custom"`
	Start       models.Date        `json:"start,omitzero"`
	End         models.Date        `json:"end,omitzero"`
	Denominator string             `json:"denominator"  default:"none"`
	ShiftMonths int                `json:"shift_months" validate:"gte=-24,lte=24"`
	Mode        string             `json:"mode"         default:"index100"`
	Weights     map[string]float64 `json:"weights,omitempty" validate:"dive,keys,required,endkeys,gte=0"`
	Story       string             `json:"story,omitempty"`
}

// Empty reports whether nothing was selected.
func (r Request) Empty() bool { return len(r.References) == 0 && len(r.Assets) == 0 }

// ApplyStory overlays a preset's range, mode and denominator on r.
func (r *Request) ApplyStory(s catalog.Story) {
	r.Story = s.Name
	if s.Range != "" {
		r.Range = s.Range
		r.Start, r.End = s.Start, s.End
	}
	if s.Mode != "" {
		r.Mode = s.Mode
	}
	if s.Denominator != "" {
		r.Denominator = s.Denominator
	}
}

// Options returns the transform options of the request.
func (r Request) Options(anchor string) transform.Options {
	mode, _ := transform.ParseMode(r.Mode)
	return transform.Options{
		Denominator: r.Denominator,
		ShiftMonths: r.ShiftMonths,
		Anchor:      anchor,
		Mode:        mode,
		Weights:     r.Weights,
	}
}

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// prepare fills defaults and validates r, returning the parsed window.
func (r *Request) prepare(ctx context.Context, defaultRange string) (align.Window, error) {
	r.Range = strings.ToLower(strings.TrimSpace(r.Range))
	if r.Range == "" {
		r.Range = defaultRange
	}
	if err := defaults.Set(r); err != nil {
		return align.Window{}, fmt.Errorf("request defaults: %w", err)
	}
	if err := validate.StructCtx(ctx, r); err != nil {
		return align.Window{}, invalid(err)
	}
	if _, err := transform.ParseMode(r.Mode); err != nil {
		return align.Window{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	w, err := align.ParseWindow(r.Range, r.Start, r.End)
	if err != nil {
		return align.Window{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for name := range r.Weights {
		if !contains(r.Assets, name) {
			return align.Window{}, fmt.Errorf("%w: weight for %q, which is not a selected asset", ErrInvalidRequest, name)
		}
	}
	return w, nil
}

func invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		if fe.Kind() == reflect.Float64 {
			return fmt.Sprintf("%s must not be negative", field)
		}
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
