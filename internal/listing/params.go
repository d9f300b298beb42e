package listing

import "fmt"

// InvalidParameterError reports a search parameter that failed validation
// before any network call was made.
type InvalidParameterError struct {
	Param   string
	Message string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Message)
}

var validExclusions = []string{"newHome", "retirement", "sharedOwnership"}

var validInclusions = []string{"garden", "parking", "newHome", "retirement", "sharedOwnership", "auction"}

// SearchOptions are the tunable parameters of an area search.
type SearchOptions struct {
	Channel Channel
	Index   int
	Radius  int
	SSTC    bool
	Exclude []string
	Include []string
}

// Validate checks every option against its allowed range or enumeration.
func (o *SearchOptions) Validate() error {
	if o.Channel != ChannelBuy && o.Channel != ChannelRent {
		return &InvalidParameterError{
			Param:   "channel",
			Message: fmt.Sprintf("expected BUY or RENT, got %q", o.Channel),
		}
	}
	if o.Index < 0 {
		return &InvalidParameterError{
			Param:   "index",
			Message: fmt.Sprintf("expected non-negative value, got %d", o.Index),
		}
	}
	if o.Radius < 0 || o.Radius > 200 {
		return &InvalidParameterError{
			Param:   "radius",
			Message: fmt.Sprintf("expected value between 0 and 200, got %d", o.Radius),
		}
	}
	for _, item := range o.Exclude {
		if !contains(validExclusions, item) {
			return &InvalidParameterError{
				Param:   "exclude",
				Message: fmt.Sprintf("valid options are %v, got %q", validExclusions, item),
			}
		}
	}
	for _, item := range o.Include {
		if !contains(validInclusions, item) {
			return &InvalidParameterError{
				Param:   "include",
				Message: fmt.Sprintf("valid options are %v, got %q", validInclusions, item),
			}
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
