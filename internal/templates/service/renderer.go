package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/osteele/liquid"
	"github.com/shopspring/decimal"
)

// Renderer parses Liquid sources once and reuses them by content hash.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

func NewRenderer() *Renderer {
	r := &Renderer{engine: liquid.NewEngine()}
	r.registerFilters()
	return r
}

func (r *Renderer) registerFilters() {
	// {{ name | default: "there" }}
	r.engine.RegisterFilter("default", func(value interface{}, fallback string) interface{} {
		if value == nil {
			return fallback
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return fallback
		}
		return value
	})

	// {{ amount | currency }} renders two decimals with a pound sign.
	r.engine.RegisterFilter("currency", func(value interface{}) string {
		d, err := decimal.NewFromString(strings.TrimSpace(fmt.Sprintf("%v", value)))
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return "£" + d.StringFixed(2)
	})

	// {{ start | longdate }} accepts time.Time or RFC 3339 strings.
	r.engine.RegisterFilter("longdate", func(value interface{}) string {
		switch v := value.(type) {
		case time.Time:
			return v.Format("2 January 2006")
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t.Format("2 January 2006")
			}
			return v
		default:
			return fmt.Sprintf("%v", value)
		}
	})
}

// Render renders source with vars.
func (r *Renderer) Render(source string, vars map[string]interface{}) (string, error) {
	sum := sha256.Sum256([]byte(source))
	key := hex.EncodeToString(sum[:])

	if cached, ok := r.cache.Load(key); ok {
		out, err := cached.(*liquid.Template).RenderString(vars)
		if err != nil {
			return "", fmt.Errorf("render template: %w", err)
		}
		return out, nil
	}

	tpl, err := r.engine.ParseString(source)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	r.cache.Store(key, tpl)

	out, err := tpl.RenderString(vars)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// Validate reports Liquid syntax errors without rendering.
func (r *Renderer) Validate(source string) error {
	if _, err := r.engine.ParseString(source); err != nil {
		return err
	}
	return nil
}
