package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// defaultAliases lists, per canonical field, the dotted paths tried in order.
// The canonical name always comes first so canonical output resolves to itself.
var defaultAliases = map[models.CanonicalField][]string{
	models.FieldID: {"id", "ipo_id", "slug"},
	models.FieldCompanyName: {
		"companyName", "company_name", "name", "ipo_name", "title",
		"basicDetails.companyName", "basicDetails.name", "company.name",
	},
	models.FieldSymbol: {
		"symbol", "nse_symbol", "bse_symbol", "ticker", "scrip_code",
		"basicDetails.symbol", "listingDetails.symbol",
	},
	models.FieldExchange: {
		"exchange", "listing_at", "exchanges",
		"basicDetails.exchange", "basicDetails.listingAt", "listingDetails.exchange",
	},
	models.FieldRegistrar: {
		"registrar", "registrar_name",
		"basicDetails.registrar", "registrarDetails.name", "registrar_details.name",
	},
	models.FieldReportedStatus: {"reportedStatus", "status", "ipo_status", "basicDetails.status"},
	models.FieldOpenDate: {
		"openDate", "open_date", "opening_date", "ipo_open_date", "bidding_start_date", "start_date",
		"basicDetails.openDate", "basicDetails.ipoOpenDate",
		"tentativeDetails.openDate", "tentativeDetails.ipoOpenDate", "schedule.open_date",
	},
	models.FieldCloseDate: {
		"closeDate", "close_date", "closing_date", "ipo_close_date", "bidding_end_date", "end_date",
		"basicDetails.closeDate", "basicDetails.ipoCloseDate",
		"tentativeDetails.closeDate", "tentativeDetails.ipoCloseDate", "schedule.close_date",
	},
	models.FieldAllotmentDate: {
		"allotmentDate", "allotment_date", "basis_of_allotment", "result_date",
		"basicDetails.allotmentDate", "tentativeDetails.allotmentDate",
		"tentativeDetails.basisOfAllotment", "schedule.allotment_date",
	},
	models.FieldListingDate: {
		"listingDate", "listing_date",
		"basicDetails.listingDate", "tentativeDetails.listingDate",
		"listingDetails.listing_date", "listingDayTrading.date", "schedule.listing_date",
	},
	models.FieldPriceRange: {
		"priceRange", "price_range", "price_band",
		"basicDetails.priceRange", "basicDetails.priceBand", "issueDetails.price_band",
	},
	models.FieldIssuePrice: {
		"issuePrice", "issue_price", "final_issue_price",
		"basicDetails.issuePrice", "listingDetails.final_issue_price", "listingDetails.issue_price",
		"listingDayTrading.issue_price", "financials.issue_price",
	},
	models.FieldLotSize: {
		"lotSize", "lot_size", "market_lot", "min_lot",
		"basicDetails.lotSize", "lotDetails.0.shares", "lot_details.retail_min.shares",
	},
	models.FieldIssueSize: {
		"issueSize", "issue_size", "total_issue_size",
		"basicDetails.issueSize", "basicDetails.totalIssueSize",
		"issueDetails.total_issue_size", "financials.issue_size",
	},
	models.FieldListingPrice: {
		"listingPrice", "listing_price",
		"listingDetails.listing_price", "listingDayTrading.open", "listingDayTrading.open_price",
		"listingDayTrading.nse.open", "listingDayTrading.bse.open",
	},
	models.FieldListingGain: {
		"listingGain", "listing_gain", "listing_gains",
		"listingDetails.listing_gain", "listingDayTrading.listing_gain", "listingDayTrading.gain_percent",
	},
	models.FieldGMP: {"gmp", "grey_market_premium", "gmp_value", "basicDetails.gmp", "gmpDetails.current"},
	models.FieldSubscriptionOverall: {
		"subscriptionOverall", "overall_subscription", "total_subscription",
		"subscription_details.total", "subscription_details.overall",
		"subscription.total", "subscription.overall",
		"subscription_status", "subscription",
	},
	models.FieldSubscriptionQIB: {
		"subscriptionQIB", "qib",
		"subscription_details.qib", "subscription.qib",
	},
	models.FieldSubscriptionNII: {
		"subscriptionNII", "nii", "hni",
		"subscription_details.nii", "subscription_details.hni", "subscription.nii",
	},
	models.FieldSubscriptionRetail: {
		"subscriptionRetail", "retail", "rii",
		"subscription_details.retail", "subscription_details.rii", "subscription.retail",
	},
	models.FieldSubscriptionEmployee: {
		"subscriptionEmployee", "employee",
		"subscription_details.employee", "subscription_details.emp", "subscription.employee",
	},
}

// AliasRegistry holds the ordered candidate paths for every canonical field.
type AliasRegistry struct {
	paths map[models.CanonicalField][]string
}

// aliasFile is the YAML layout accepted by LoadAliasRegistry.
type aliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// NewDefaultAliasRegistry returns a registry seeded with the built-in alias table.
func NewDefaultAliasRegistry() *AliasRegistry {
	registry := &AliasRegistry{paths: make(map[models.CanonicalField][]string, len(defaultAliases))}
	for field, paths := range defaultAliases {
		registry.paths[field] = append([]string(nil), paths...)
	}
	return registry
}

// LoadAliasRegistry returns the default registry with overrides from a YAML file.
// An empty path yields the defaults.
func LoadAliasRegistry(path string) (*AliasRegistry, error) {
	registry := NewDefaultAliasRegistry()
	if path == "" {
		return registry, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryConfiguration, "ALIAS_FILE_READ", "FieldResolver", "LoadAliasRegistry", false)
	}

	var file aliasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError(fmt.Errorf("parse %s: %w", path, err), shared.ErrorCategoryConfiguration, "ALIAS_FILE_PARSE", "FieldResolver", "LoadAliasRegistry", false)
	}

	for name, paths := range file.Aliases {
		if err := registry.Override(models.CanonicalField(name), paths); err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"component": "FieldResolver",
		"file":      path,
		"overrides": len(file.Aliases),
	}).Info("Loaded alias overrides")

	return registry, nil
}

// Paths returns the candidate paths of a field in precedence order.
func (r *AliasRegistry) Paths(field models.CanonicalField) ([]string, bool) {
	paths, ok := r.paths[field]
	return paths, ok
}

// Override replaces the candidate list of a registered field. The canonical
// name is kept as the first candidate.
func (r *AliasRegistry) Override(field models.CanonicalField, paths []string) error {
	if _, ok := r.paths[field]; !ok {
		return unknownFieldError(field, "Override")
	}

	merged := []string{string(field)}
	seen := map[string]bool{string(field): true}
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		merged = append(merged, path)
	}
	r.paths[field] = merged
	return nil
}

// Clone returns an independent copy of the registry.
func (r *AliasRegistry) Clone() *AliasRegistry {
	clone := &AliasRegistry{paths: make(map[models.CanonicalField][]string, len(r.paths))}
	for field, paths := range r.paths {
		clone.paths[field] = append([]string(nil), paths...)
	}
	return clone
}

// FieldResolver looks up canonical fields in raw records of any known shape.
type FieldResolver struct {
	registry *AliasRegistry
}

// NewFieldResolver creates a resolver; a nil registry means the defaults.
func NewFieldResolver(registry *AliasRegistry) *FieldResolver {
	if registry == nil {
		registry = NewDefaultAliasRegistry()
	}
	return &FieldResolver{registry: registry}
}

// Registry returns the alias table the resolver tries.
func (r *FieldResolver) Registry() *AliasRegistry {
	return r.registry
}

// Resolve returns the raw value of the first candidate path holding a usable
// value. Missing paths are not errors; an unregistered field is.
func (r *FieldResolver) Resolve(record models.RawIPORecord, field models.CanonicalField) (interface{}, bool, error) {
	paths, ok := r.registry.Paths(field)
	if !ok {
		return nil, false, unknownFieldError(field, "Resolve")
	}

	for _, path := range paths {
		value, found := LookupPath(record, path)
		if found && isUsable(value) {
			return value, true, nil
		}
	}

	return nil, false, nil
}

// LookupPath walks a dotted path through nested objects and arrays.
func LookupPath(record models.RawIPORecord, path string) (interface{}, bool) {
	var current interface{} = map[string]interface{}(record)

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			value, ok := lookupKey(node, segment)
			if !ok {
				return nil, false
			}
			current = value
		case models.RawIPORecord:
			value, ok := lookupKey(node, segment)
			if !ok {
				return nil, false
			}
			current = value
		case []interface{}:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}
			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}

// lookupKey matches the exact key first, then any key equal after
// dropping case and separators. Ties go to the lexically smallest key.
func lookupKey(node map[string]interface{}, segment string) (interface{}, bool) {
	if value, ok := node[segment]; ok {
		return value, true
	}

	wanted := foldKey(segment)
	if wanted == "" {
		return nil, false
	}

	var matches []string
	for key := range node {
		if foldKey(key) == wanted {
			matches = append(matches, key)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	sort.Strings(matches)
	return node[matches[0]], true
}

func foldKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func isUsable(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return !IsPlaceholder(v)
	default:
		return true
	}
}

func unknownFieldError(field models.CanonicalField, operation string) *shared.ServiceError {
	return shared.NewServiceError(
		shared.ErrorCategoryContract,
		"UNKNOWN_CANONICAL_FIELD",
		fmt.Sprintf("canonical field %q is not registered", field),
		"FieldResolver",
		operation,
		false,
		nil,
	)
}
