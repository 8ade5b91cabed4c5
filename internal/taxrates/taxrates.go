package taxrates

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Rate is a percentage valid from a date until the next rate of the same table.
type Rate struct {
	From models.Date     `yaml:"-"`
	Raw  string          `yaml:"from"`
	Rate decimal.Decimal `yaml:"-"`
	Val  string          `yaml:"rate"`
}

type BTWAccounts struct {
	VAT        []string `yaml:"vat"`
	Revenue    []string `yaml:"revenue"`
	Payable    string   `yaml:"payable"`
	Settlement string   `yaml:"settlement"`
}

// Table holds the VAT, tourist tax and channel commission rates together
// with the ledger accounts the reports book against.
type Table struct {
	AccommodationVAT  []Rate            `yaml:"accommodation_vat"`
	TouristTax        []Rate            `yaml:"tourist_tax"`
	ChannelCommission map[string]string `yaml:"channel_commission"`
	BTW               BTWAccounts       `yaml:"btw"`
	TouristTaxAccount string            `yaml:"tourist_tax_account"`

	commission map[string]decimal.Decimal
}

// Default returns the embedded rate table.
func Default() (*Table, error) {
	return Parse(defaultYAML)
}

// Load reads a rate table from path, or the embedded defaults when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tax rates: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tax rates: %w", err)
	}
	if err := normalize(t.AccommodationVAT); err != nil {
		return nil, fmt.Errorf("accommodation_vat: %w", err)
	}
	if err := normalize(t.TouristTax); err != nil {
		return nil, fmt.Errorf("tourist_tax: %w", err)
	}

	t.commission = make(map[string]decimal.Decimal, len(t.ChannelCommission))
	for channel, raw := range t.ChannelCommission {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("channel_commission %s: %w", channel, err)
		}
		t.commission[strings.ToLower(channel)] = d
	}
	return &t, nil
}

func normalize(rates []Rate) error {
	if len(rates) == 0 {
		return fmt.Errorf("at least one rate is required")
	}
	for i := range rates {
		from, err := models.ParseDate(rates[i].Raw)
		if err != nil {
			return err
		}
		rate, err := decimal.NewFromString(rates[i].Val)
		if err != nil {
			return fmt.Errorf("rate %q: %w", rates[i].Val, err)
		}
		rates[i].From, rates[i].Rate = from, rate
	}
	slices.SortFunc(rates, func(a, b Rate) int { return a.From.Compare(b.From.Time) })
	return nil
}

func rateOn(rates []Rate, d models.Date) decimal.Decimal {
	current := rates[0].Rate
	for _, r := range rates {
		if r.From.After(d) {
			break
		}
		current = r.Rate
	}
	return current
}

// VATOn returns the accommodation VAT rate valid on d.
func (t *Table) VATOn(d models.Date) decimal.Decimal { return rateOn(t.AccommodationVAT, d) }

// TouristTaxOn returns the tourist tax rate valid on d.
func (t *Table) TouristTaxOn(d models.Date) decimal.Decimal { return rateOn(t.TouristTax, d) }

// Commission returns the commission rate of channel, zero when unknown.
func (t *Table) Commission(channel string) decimal.Decimal {
	return t.commission[strings.ToLower(channel)]
}
