package kwsearch

import "github.com/cockroachdb/errors"

const (
	// MinNum is the smallest accepted result count per request.
	MinNum = 1
	// MaxNum is the largest result count the external API serves per request.
	MaxNum = 10
	// DefaultNum is used when no count is configured.
	DefaultNum = 1
	// MaxWindow is the deepest 1-based position the external API will page to.
	MaxWindow = 100
)

// SearchOption represents a search configuration option.
type SearchOption interface {
	Apply(*SearchConfig)
}

// SearchConfig holds all search configuration parameters.
type SearchConfig struct {
	// Num is the number of results requested (the count parameter).
	Num int

	// Start is the 1-based position of the first result, used for paging.
	Start int

	// Language restricts results to a language, e.g. "lang_ja".
	Language string

	// SafeSearch is "active" or "off".
	SafeSearch string

	// Country boosts results from a country, e.g. "jp".
	Country string

	// InterfaceLanguage is the host language of the request, e.g. "ja".
	InterfaceLanguage string

	// DateRestrict limits results by age, e.g. "d7" or "m1".
	DateRestrict string

	// FileType restricts results to a file extension.
	FileType string

	// SiteSearch restricts results to a site.
	SiteSearch string

	// Filters contains filter expressions applied to the returned records.
	Filters []Expression
}

// NewSearchConfig applies opts over the defaults (Num=1, Start=1).
func NewSearchConfig(opts ...SearchOption) *SearchConfig {
	cfg := &SearchConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(cfg)
		}
	}
	if cfg.Num == 0 {
		cfg.Num = DefaultNum
	}
	if cfg.Start == 0 {
		cfg.Start = 1
	}
	return cfg
}

// Validate checks the count and paging window.
func (c *SearchConfig) Validate() error {
	if c.Num < MinNum || c.Num > MaxNum {
		return errors.WithSecondaryError(ErrInvalidOption,
			errors.Newf("num must be between %d and %d, got %d", MinNum, MaxNum, c.Num))
	}
	if c.Start < 1 {
		return errors.WithSecondaryError(ErrInvalidOption,
			errors.Newf("start must be positive, got %d", c.Start))
	}
	if c.Start+c.Num-1 > MaxWindow {
		return errors.WithSecondaryError(ErrInvalidOption,
			errors.Newf("start+num-1 must not exceed %d, got %d", MaxWindow, c.Start+c.Num-1))
	}
	return nil
}

// optionFunc is a function that implements SearchOption.
type optionFunc func(*SearchConfig)

// Apply implements the SearchOption interface for optionFunc.
func (f optionFunc) Apply(cfg *SearchConfig) {
	f(cfg)
}

// WithNum sets the number of results to request.
func WithNum(n int) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Num = n
	})
}

// WithStart sets the 1-based position of the first result.
func WithStart(n int) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Start = n
	})
}

// WithLanguage restricts results to a language (lr).
func WithLanguage(lr string) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Language = lr
	})
}

// WithSafeSearch sets the safe search level (safe).
func WithSafeSearch(safe string) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.SafeSearch = safe
	})
}

// WithCountry sets the geolocation of the end user (gl).
func WithCountry(gl string) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Country = gl
	})
}

// WithInterfaceLanguage sets the interface language (hl).
func WithInterfaceLanguage(hl string) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.InterfaceLanguage = hl
	})
}

// WithDateRestrict limits results by date (dateRestrict).
func WithDateRestrict(d string) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.DateRestrict = d
	})
}

// WithFileType restricts results to a file type (fileType).
func WithFileType(t string) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.FileType = t
	})
}

// WithSiteSearch restricts results to a site (siteSearch).
func WithSiteSearch(site string) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.SiteSearch = site
	})
}
