// Package places fetches business listings from the search provider and
// normalizes them into the persisted record shape.
package places

// Unit is one (state, district, city, category) combination to fetch.
type Unit struct {
	State    string
	District string
	City     string
	Category string
}

// Place is a raw provider result. Only the fields the agent consumes are
// decoded; everything else in the payload is dropped.
type Place struct {
	Title       string  `json:"title"`
	Address     string  `json:"address"`
	PhoneNumber string  `json:"phoneNumber"`
	Website     string  `json:"website"`
	Rating      float64 `json:"rating"`
	CID         string  `json:"cid"`
	PlaceID     string  `json:"placeId"`
}

// identityKey derives the dedup key: provider id, then the alternate place
// id, then title+address. Empty means the result carries no identity at all.
func (p Place) identityKey() string {
	if p.CID != "" {
		return p.CID
	}
	if p.PlaceID != "" {
		return p.PlaceID
	}
	return p.Title + p.Address
}

// Record is the canonical persisted shape. SerialNumber is zero until the
// sink assigns it at write time.
type Record struct {
	SerialNumber int
	Name         string
	Category     string
	Address      string
	City         string
	State        string
	Phone        string
	Website      string
	HasWebsite   bool
	Rating       float64
	DataSource   string
}

const dataSource = "Serper/GoogleMaps"

// Normalize maps a raw result onto the record shape. Category, city, and
// state always come from the unit the result was fetched for, never from the
// payload.
func Normalize(p Place, u Unit) Record {
	return Record{
		Name:       p.Title,
		Category:   u.Category,
		Address:    p.Address,
		City:       u.City,
		State:      u.State,
		Phone:      p.PhoneNumber,
		Website:    p.Website,
		HasWebsite: p.Website != "",
		Rating:     p.Rating,
		DataSource: dataSource,
	}
}

// Dedupe normalizes raw results from all query variants of one unit,
// keeping the first occurrence per identity key and dropping results with no
// identity at all. Pure transform; order of first occurrence is preserved.
func Dedupe(raw []Place, u Unit) []Record {
	seen := make(map[string]bool, len(raw))
	var out []Record
	for _, p := range raw {
		key := p.identityKey()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Normalize(p, u))
	}
	return out
}
