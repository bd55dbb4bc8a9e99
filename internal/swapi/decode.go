package swapi

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/starship-shop/internal/domain/catalog"
)

// decodePage parses a listing or search response. Unknown fields are skipped;
// results without a name are kept.
func decodePage(data []byte) (*catalog.Page, error) {
	p := &catalog.Page{}
	d := jx.DecodeBytes(data)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "count":
			if d.Next() == jx.Null {
				return d.Null()
			}
			p.Count, err = d.Int()
			return errors.Wrap(err, "count")
		case "next":
			p.Next, err = optString(d)
			return errors.Wrap(err, "next")
		case "previous":
			p.Previous, err = optString(d)
			return errors.Wrap(err, "previous")
		case "results":
			p.Items, err = decodeItems(d)
			return errors.Wrap(err, "results")
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	if p.Items == nil {
		p.Items = []catalog.Item{}
	}
	return p, nil
}

func decodeItems(d *jx.Decoder) ([]catalog.Item, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	items := []catalog.Item{}
	err := d.Arr(func(d *jx.Decoder) error {
		it, err := decodeItem(d)
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

func decodeItem(d *jx.Decoder) (catalog.Item, error) {
	var it catalog.Item
	it.Cost = catalog.UnavailableCost("")

	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			it.Name, err = optString(d)
		case "model":
			it.Model, err = optString(d)
		case "manufacturer":
			it.Manufacturer, err = optString(d)
		case "starship_class":
			it.StarshipClass, err = optString(d)
		case "url":
			it.URL, err = optString(d)
		case "cost_in_credits":
			it.Cost, err = decodeCost(d)
		default:
			return d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return catalog.Item{}, err
	}
	it.ID = catalog.DeriveID(it.URL, it.Name)
	return it, nil
}

// decodeCost narrows the untyped cost field. Numbers and numeric strings
// become known costs; null, sentinels and anything else are unavailable.
func decodeCost(d *jx.Decoder) (catalog.Cost, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return catalog.Cost{}, err
		}
		return catalog.CostFromString(s), nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return catalog.Cost{}, err
		}
		v, err := decimal.NewFromString(string(n))
		if err != nil {
			return catalog.UnavailableCost(string(n)), nil
		}
		return catalog.CostFromDecimal(v), nil
	case jx.Null:
		return catalog.UnavailableCost(""), d.Null()
	default:
		return catalog.UnavailableCost(""), d.Skip()
	}
}

func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
