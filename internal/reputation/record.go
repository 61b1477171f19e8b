// MIT License
//
// # Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package reputation

import (
	"sort"
	"time"
)

// Category identifies one reputation dimension reported by the WOT service.
type Category int

// Known categories. 3 is reserved by the service and never stored.
const (
	Trustworthiness   Category = 0
	VendorReliability Category = 1
	Privacy           Category = 2
	ChildSafety       Category = 4
)

// Categories lists the supported categories in display order.
var Categories = []Category{Trustworthiness, VendorReliability, Privacy, ChildSafety}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case Trustworthiness, VendorReliability, Privacy, ChildSafety:
		return true
	}
	return false
}

// Metric holds the raw values for one category. A nil value means "not rated".
type Metric struct {
	Reputation *int `json:"reputation"`
	Confidence *int `json:"confidence"`
}

// Metrics maps a category to its raw values.
type Metrics map[Category]Metric

// Sorted returns the categories present in m in ascending order.
func (m Metrics) Sorted() []Category {
	out := make([]Category, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HostInfo describes where a domain was resolved to at refresh time.
type HostInfo struct {
	IP          string `json:"ip,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryName string `json:"country_name,omitempty"`
	ASN         int    `json:"asn,omitempty"`
	ASNOrg      string `json:"asn_org,omitempty"`
}

// Record is the cached reputation of a single canonical domain.
type Record struct {
	ID         uint      `json:"-"`
	Domain     string    `json:"domain"`
	LastUpdate time.Time `json:"last_update"`
	Metrics    Metrics   `json:"metrics"`
	Host       HostInfo  `json:"host"`
	CreatedAt  time.Time `json:"created_at"`
}

// Metric returns the values stored for c, or an unrated metric.
func (r *Record) Metric(c Category) Metric {
	if r == nil || r.Metrics == nil {
		return Metric{}
	}
	return r.Metrics[c]
}

// Age returns how long ago the record was last refreshed.
func (r *Record) Age(now time.Time) time.Duration {
	return now.Sub(r.LastUpdate)
}

// IntPtr is a small helper for building metrics.
func IntPtr(v int) *int { return &v }
