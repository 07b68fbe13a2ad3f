package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CategoryRules drives the non-LLM categorization tier: the allowed
// category set, the MCC lookup and the ordered keyword scan. Keyword
// order matters ("bolttaxi" must win over "bolt"), so keywords are a
// list, not a map.
type CategoryRules struct {
	Categories []string      `mapstructure:"categories"`
	MCC        []MCCRule     `mapstructure:"mcc"`
	Keywords   []KeywordRule `mapstructure:"keywords"`
}

type MCCRule struct {
	Code     string `mapstructure:"code"`
	Category string `mapstructure:"category"`
}

type KeywordRule struct {
	Keyword  string `mapstructure:"keyword"`
	Category string `mapstructure:"category"`
}

func DefaultCategoryRules() CategoryRules {
	return CategoryRules{
		Categories: []string{
			"Groceries",
			"Dining & Restaurants",
			"Food Delivery",
			"Transport & Taxi",
			"Utilities",
			"Subscriptions",
			"Shopping & Clothing",
			"Pharmacy & Health",
			"Travel & Flights",
			"Home & Furniture",
			"Parking",
			"Fuel",
			"Online Shopping",
			"Income & Transfers",
			"Other",
		},
		MCC: []MCCRule{
			{Code: "5411", Category: "Groceries"},
			{Code: "5812", Category: "Dining & Restaurants"},
			{Code: "5814", Category: "Dining & Restaurants"},
			{Code: "4215", Category: "Food Delivery"},
			{Code: "4121", Category: "Transport & Taxi"},
			{Code: "4112", Category: "Transport & Taxi"},
			{Code: "4899", Category: "Subscriptions"},
			{Code: "5818", Category: "Subscriptions"},
			{Code: "5734", Category: "Subscriptions"},
			{Code: "5912", Category: "Pharmacy & Health"},
			{Code: "5691", Category: "Shopping & Clothing"},
			{Code: "5712", Category: "Home & Furniture"},
			{Code: "5719", Category: "Home & Furniture"},
			{Code: "7523", Category: "Parking"},
			{Code: "5541", Category: "Fuel"},
			{Code: "5310", Category: "Online Shopping"},
			{Code: "5999", Category: "Online Shopping"},
		},
		Keywords: []KeywordRule{
			{Keyword: "wolt", Category: "Food Delivery"},
			{Keyword: "bolttaxi", Category: "Transport & Taxi"},
			{Keyword: "bolt", Category: "Transport & Taxi"},
			{Keyword: "taxi", Category: "Transport & Taxi"},
			{Keyword: "nikora", Category: "Groceries"},
			{Keyword: "spar", Category: "Groceries"},
			{Keyword: "agrohub", Category: "Groceries"},
			{Keyword: "pharma", Category: "Pharmacy & Health"},
			{Keyword: "gpc", Category: "Pharmacy & Health"},
			{Keyword: "apple", Category: "Subscriptions"},
			{Keyword: "megogo", Category: "Subscriptions"},
			{Keyword: "t3 chat", Category: "Subscriptions"},
			{Keyword: "taobao", Category: "Online Shopping"},
			{Keyword: "zara", Category: "Shopping & Clothing"},
			{Keyword: "magti", Category: "Utilities"},
			{Keyword: "telmico", Category: "Utilities"},
			{Keyword: "gwp", Category: "Utilities"},
			{Keyword: "water", Category: "Utilities"},
			{Keyword: "power", Category: "Utilities"},
		},
	}
}

type RulesHolder struct {
	current atomic.Value // holds CategoryRules
}

func NewRulesHolder() (*RulesHolder, error) {
	v := viper.New()

	v.SetConfigName("rules")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/saldo/config") // Volume-mounted config
	v.AddConfigPath("/etc/saldo")            // System config
	v.AddConfigPath(".")                     // Current directory (dev mode)

	v.SetEnvPrefix("SALDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultCategoryRules()
		v.SetDefault("rules.categories", defaults.Categories)
		v.SetDefault("rules.mcc", defaults.MCC)
		v.SetDefault("rules.keywords", defaults.Keywords)
	}

	var cfg CategoryRules
	if err := v.UnmarshalKey("rules", &cfg); err != nil {
		return nil, err
	}
	if err := validateCategoryRules(cfg); err != nil {
		return nil, err
	}

	holder := &RulesHolder{}
	holder.current.Store(cfg)

	// hot reload
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CategoryRules
		if err := v.UnmarshalKey("rules", &updated); err != nil {
			log.Printf("[rules-config] reload failed: %v", err)
			return
		}
		if err := validateCategoryRules(updated); err != nil {
			log.Printf("[rules-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[rules-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RulesHolder) Get() CategoryRules {
	return h.current.Load().(CategoryRules)
}

// NewStaticRulesHolder returns a holder pinned to the given rules,
// bypassing the config file. Used by tests.
func NewStaticRulesHolder(rules CategoryRules) *RulesHolder {
	holder := &RulesHolder{}
	holder.current.Store(rules)
	return holder
}

func validateCategoryRules(cfg CategoryRules) error {
	if len(cfg.Categories) == 0 {
		return errors.New("rules.categories cannot be empty")
	}
	hasOther := false
	for _, name := range cfg.Categories {
		if name == "Other" {
			hasOther = true
			break
		}
	}
	if !hasOther {
		return errors.New(`rules.categories must include "Other"`)
	}
	for _, rule := range cfg.MCC {
		if rule.Code == "" || rule.Category == "" {
			return errors.New("rules.mcc entries need code and category")
		}
	}
	for _, rule := range cfg.Keywords {
		if rule.Keyword == "" || rule.Category == "" {
			return errors.New("rules.keywords entries need keyword and category")
		}
	}
	return nil
}
