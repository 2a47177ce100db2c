package registry

import (
	"regexp"
	"strings"
	"time"

	"github.com/BearBump/trackrecon/config"
	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/integrations/carrier/fake"
	"github.com/BearBump/trackrecon/internal/integrations/carrier/scrape"
	"github.com/BearBump/trackrecon/internal/integrations/carrier/tokenapi"
)

const (
	EcomExpress carrier.Code = "ecomexpress"
	XpressBees  carrier.Code = "xpressbees"
	Delhivery   carrier.Code = "delhivery"
	Shadowfax   carrier.Code = "shadowfax"
	BlueDart    carrier.Code = "bluedart"
	DTDC        carrier.Code = "dtdc"
	Ekart       carrier.Code = "ekart"
)

type alias struct {
	code    carrier.Code
	aliases []string
}

// Порядок важен: "ECOM EXPRESS" содержит "XPRESS", поэтому ECOM проверяется раньше.
var builtinAliases = []alias{
	{EcomExpress, []string{"ECOM"}},
	{XpressBees, []string{"XPRESS"}},
	{Delhivery, []string{"DELHIVERY"}},
	{Shadowfax, []string{"SHADOWFAX"}},
	{BlueDart, []string{"BLUEDART"}},
	{DTDC, []string{"DTDC"}},
	{Ekart, []string{"EKART"}},
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

func normalize(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToUpper(s), "")
}

// Registry maps free carrier text to an adapter. It is immutable after construction.
type Registry struct {
	table    []alias
	adapters map[carrier.Code]carrier.Adapter
}

func New() *Registry {
	table := make([]alias, len(builtinAliases))
	copy(table, builtinAliases)
	return &Registry{table: table, adapters: map[carrier.Code]carrier.Adapter{}}
}

// Register binds an adapter to its code. Aliases extend the table; a code that is
// not yet in the table is appended after the built-in carriers.
func (r *Registry) Register(a carrier.Adapter, aliases ...string) {
	code := a.Code()
	r.adapters[code] = a

	for i := range r.table {
		if r.table[i].code == code {
			if len(aliases) > 0 {
				r.table[i].aliases = normalizeAll(aliases)
			}
			return
		}
	}
	if len(aliases) == 0 {
		aliases = []string{string(code)}
	}
	r.table = append(r.table, alias{code: code, aliases: normalizeAll(aliases)})
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if n := normalize(a); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// ResolveCode returns the code whose alias first matches the text, registered or not.
func (r *Registry) ResolveCode(text string) (carrier.Code, bool) {
	n := normalize(text)
	if n == "" {
		return "", false
	}
	for _, a := range r.table {
		for _, al := range a.aliases {
			if strings.Contains(n, al) {
				return a.code, true
			}
		}
	}
	return "", false
}

// Resolve never guesses: a text matching a known but unconfigured carrier is unresolved.
func (r *Registry) Resolve(text string) (carrier.Adapter, bool) {
	code, ok := r.ResolveCode(text)
	if !ok {
		return nil, false
	}
	a, ok := r.adapters[code]
	return a, ok
}

func (r *Registry) ByCode(code string) (carrier.Adapter, bool) {
	a, ok := r.adapters[carrier.Code(strings.ToLower(code))]
	return a, ok
}

func (r *Registry) Codes() []carrier.Code {
	out := make([]carrier.Code, 0, len(r.adapters))
	for _, a := range r.table {
		if _, ok := r.adapters[a.code]; ok {
			out = append(out, a.code)
		}
	}
	return out
}

// FromConfig builds adapters for configured carriers: token -> API, page url -> scrape.
// With fakeCarriers every built-in carrier gets the deterministic fake.
func FromConfig(carriers []config.CarrierConfig, sync config.SyncConfig, fakeCarriers bool) *Registry {
	r := New()
	timeout := time.Duration(sync.FetchTimeoutSeconds) * time.Second

	if fakeCarriers {
		for _, a := range builtinAliases {
			r.Register(fake.New(a.code))
		}
	}

	for _, cc := range carriers {
		if cc.Disabled || cc.Code == "" {
			continue
		}
		code := carrier.Code(strings.ToLower(cc.Code))
		limits := carrier.Limits{Concurrency: cc.Concurrency, RateLimitPerMinute: cc.RateLimitPerMinute}

		switch {
		case fakeCarriers:
			r.Register(fake.New(code), cc.Aliases...)
		case cc.APIToken != "":
			if limits.Concurrency <= 0 {
				limits.Concurrency = sync.APIConcurrency
			}
			r.Register(tokenapi.New(tokenapi.Config{
				Code:       code,
				BaseURL:    cc.APIBaseURL,
				TrackPath:  cc.APITrackPath,
				Token:      cc.APIToken,
				AuthHeader: cc.AuthHeader,
				AuthScheme: cc.AuthScheme,
				Timeout:    timeout,
				Limits:     limits,
			}), cc.Aliases...)
		case cc.PageURL != "":
			if limits.Concurrency <= 0 {
				limits.Concurrency = sync.ScrapeConcurrency
			}
			r.Register(scrape.New(scrape.Config{
				Code:              code,
				PageURL:           cc.PageURL,
				Timeout:           timeout,
				Limits:            limits,
				StatusSelectors:   cc.StatusSelectors,
				LocationSelectors: cc.LocationSelectors,
				TimeSelectors:     cc.TimeSelectors,
			}), cc.Aliases...)
		}
	}
	return r
}
