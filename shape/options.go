package shape

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	DefaultPrimaryKey   = "rows"
	DefaultAlternateKey = "data"
)

type Option func(*settings)

// WithKeys overrides the wrapper field names. An empty alternate disables
// the alternate-key matchers.
func WithKeys(primary, alternate string) Option {
	return func(s *settings) {
		if primary != "" {
			s.keys.primary = primary
		}
		s.keys.alternate = alternate
	}
}

func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.obs = o
		}
	}
}

// WithDateAlias copies the first non-null alternate field into canonical on
// every object element before it is decoded. Elements that already carry
// canonical keep the alternate's value; the backend sends only one of them.
func WithDateAlias(canonical string, alternates ...string) Option {
	return func(s *settings) {
		if canonical == "" || len(alternates) == 0 {
			return
		}
		s.aliases = append(s.aliases, alias{canonical: canonical, alternates: alternates})
	}
}

type alias struct {
	canonical  string
	alternates []string
}

type settings struct {
	keys    keys
	obs     Observer
	aliases []alias
}

func newSettings(opts []Option) *settings {
	s := &settings{
		keys: keys{primary: DefaultPrimaryKey, alternate: DefaultAlternateKey},
		obs:  NopObserver{},
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	return s
}

// reconcile applies the date aliases to one object element.
func (s *settings) reconcile(el []byte) []byte {
	for _, a := range s.aliases {
		for _, alt := range a.alternates {
			r := gjson.GetBytes(el, escapePath(alt))
			if !r.Exists() || r.Type == gjson.Null {
				continue
			}
			if out, err := sjson.SetRawBytes(el, escapePath(a.canonical), []byte(r.Raw)); err == nil {
				el = out
			}
			break
		}
	}
	return el
}
