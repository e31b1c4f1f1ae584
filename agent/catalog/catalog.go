package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed data/catalog.json
	defaultCatalogRaw []byte

	//go:embed data/catalog.schema.json
	catalogSchemaRaw []byte
)

var ErrInvalidCatalog = errors.New("invalid catalog")

type Config struct {
	// Path overrides the embedded catalog with a JSON file on disk.
	Path string `split_words:"true"`
}

type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Tags        []string `json:"tags,omitempty"`
}

type catalogFile struct {
	Items []Item `json:"items"`
}

// Catalog is an immutable, insertion-ordered set of items.
type Catalog struct {
	items  []Item
	tokens []map[string]struct{}
}

// Load reads the catalog from cfg.Path, or the embedded default when unset.
func Load(cfg Config) (*Catalog, error) {
	raw := defaultCatalogRaw
	if path := strings.TrimSpace(cfg.Path); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		raw = b
	}

	c, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	log.Info().Int("items", len(c.items)).Str("path", cfg.Path).Msg("catalog loaded")
	return c, nil
}

// Parse validates raw against the catalog schema and builds a Catalog.
func Parse(raw []byte) (*Catalog, error) {
	res, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(catalogSchemaRaw),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if !res.Valid() {
		problems := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}

	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(file.Items)
}

func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items:  make([]Item, 0, len(items)),
		tokens: make([]map[string]struct{}, 0, len(items)),
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %q", ErrInvalidCatalog, it.ID)
		}
		seen[it.ID] = struct{}{}

		it.Tags = normalizeTags(it.Tags)
		c.items = append(c.items, it)
		c.tokens = append(c.tokens, itemTokens(it))
	}
	return c, nil
}

// AllItems returns the catalog in insertion order.
func (c *Catalog) AllItems() []Item {
	return slices.Clone(c.items)
}

func (c *Catalog) Len() int {
	return len(c.items)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func itemTokens(it Item) map[string]struct{} {
	set := make(map[string]struct{}, 16)
	fields := append([]string{it.Name, it.Category, it.Description}, it.Tags...)
	for _, f := range fields {
		for _, tok := range tokenize(f) {
			set[tok] = struct{}{}
		}
	}
	return set
}
