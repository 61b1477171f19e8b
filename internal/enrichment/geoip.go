// MIT License
//
// Copyright (c) 2026 Kolin
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
package enrichment

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"wotcache/internal/reputation"

	"github.com/oschwald/geoip2-golang"
	"github.com/pterm/pterm"
)

// Resolver turns a host name into addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
}

type countryReader interface {
	Country(ip net.IP) (*geoip2.Country, error)
}

type asnReader interface {
	ASN(ip net.IP) (*geoip2.ASN, error)
}

type cachedHost struct {
	info     reputation.HostInfo
	lastSeen time.Time
}

// GeoIPEnricher resolves the domain of a record and attaches the location
// and network owner of its first address. Lookups are memoised per IP.
type GeoIPEnricher struct {
	cityDB    cityReader
	countryDB countryReader
	asnDB     asnReader
	closers   []*geoip2.Reader
	resolver  Resolver
	logger    *pterm.Logger
	cache     map[string]*cachedHost
	cacheMu   sync.RWMutex
	enabled   bool
	cacheSize int
}

// NewGeoIPEnricher opens whichever of the City, Country and ASN databases
// are configured. Without a City or Country database enrichment is disabled.
func NewGeoIPEnricher(cityDBPath, countryDBPath, asnDBPath string, logger *pterm.Logger, cacheSize int) (*GeoIPEnricher, error) {
	enricher := newEnricher(logger, cacheSize)

	if cityDBPath != "" {
		cityDB, err := geoip2.Open(cityDBPath)
		if err != nil {
			logger.Warn("GeoIP City database not available",
				logger.Args("path", cityDBPath, "error", err))
		} else {
			enricher.cityDB = cityDB
			enricher.closers = append(enricher.closers, cityDB)
			enricher.enabled = true
			logger.Info("Loaded GeoIP City database", logger.Args("path", cityDBPath))
		}
	}

	if countryDBPath != "" {
		countryDB, err := geoip2.Open(countryDBPath)
		if err != nil {
			logger.Warn("GeoIP Country database not available",
				logger.Args("path", countryDBPath, "error", err))
		} else {
			enricher.countryDB = countryDB
			enricher.closers = append(enricher.closers, countryDB)
			enricher.enabled = true
			logger.Info("Loaded GeoIP Country database", logger.Args("path", countryDBPath))
		}
	}

	if asnDBPath != "" {
		asnDB, err := geoip2.Open(asnDBPath)
		if err != nil {
			logger.Warn("GeoIP ASN database not available",
				logger.Args("path", asnDBPath, "error", err))
		} else {
			enricher.asnDB = asnDB
			enricher.closers = append(enricher.closers, asnDB)
			logger.Info("Loaded GeoIP ASN database", logger.Args("path", asnDBPath))
		}
	}

	if !enricher.enabled {
		logger.Info("GeoIP enrichment disabled - no databases available")
	}

	return enricher, nil
}

func newEnricher(logger *pterm.Logger, cacheSize int) *GeoIPEnricher {
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	return &GeoIPEnricher{
		resolver:  net.DefaultResolver,
		logger:    logger,
		cache:     make(map[string]*cachedHost),
		cacheSize: cacheSize,
	}
}

// WithResolver replaces the DNS resolver.
func (g *GeoIPEnricher) WithResolver(r Resolver) *GeoIPEnricher {
	g.resolver = r
	return g
}

// Enrich fills record.Host. It is a no-op when no database is loaded.
func (g *GeoIPEnricher) Enrich(ctx context.Context, record *reputation.Record) error {
	if !g.enabled || record.Domain == "" {
		return nil
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, record.Domain)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", record.Domain, err)
	}
	ip := pickAddress(addrs)
	if ip == nil {
		return fmt.Errorf("resolve %s: no addresses", record.Domain)
	}

	key := ip.String()
	g.cacheMu.Lock()
	cached, exists := g.cache[key]
	if exists {
		cached.lastSeen = time.Now()
		record.Host = cached.info
	}
	g.cacheMu.Unlock()

	if exists {
		g.logger.Trace("GeoIP cache hit", g.logger.Args("ip", key, "domain", record.Domain))
		return nil
	}

	g.logger.Trace("GeoIP cache miss, performing lookup", g.logger.Args("ip", key, "domain", record.Domain))
	record.Host = g.lookupAndCache(ip)
	return nil
}

// pickAddress prefers IPv4, matching what most GeoIP Lite data covers best.
func pickAddress(addrs []net.IPAddr) net.IP {
	var first net.IP
	for _, a := range addrs {
		if a.IP == nil {
			continue
		}
		if a.IP.To4() != nil {
			return a.IP
		}
		if first == nil {
			first = a.IP
		}
	}
	return first
}

func (g *GeoIPEnricher) lookupAndCache(ip net.IP) reputation.HostInfo {
	info := reputation.HostInfo{IP: ip.String()}

	cityLookupSuccess := false
	if g.cityDB != nil {
		record, err := g.cityDB.City(ip)
		if err == nil {
			info.Country = record.Country.IsoCode
			info.CountryName = record.Country.Names["en"]
			cityLookupSuccess = info.Country != ""
			g.logger.Debug("GeoIP City lookup successful",
				g.logger.Args("ip", info.IP, "country", info.Country))
		} else {
			g.logger.Debug("GeoIP City lookup failed", g.logger.Args("ip", info.IP, "error", err))
		}
	}

	if !cityLookupSuccess && g.countryDB != nil {
		record, err := g.countryDB.Country(ip)
		if err == nil {
			info.Country = record.Country.IsoCode
			info.CountryName = record.Country.Names["en"]
			g.logger.Debug("GeoIP Country lookup successful",
				g.logger.Args("ip", info.IP, "country", info.Country))
		} else {
			g.logger.Debug("GeoIP Country lookup failed", g.logger.Args("ip", info.IP, "error", err))
		}
	}

	if g.asnDB != nil {
		record, err := g.asnDB.ASN(ip)
		if err == nil {
			info.ASN = int(record.AutonomousSystemNumber)
			info.ASNOrg = record.AutonomousSystemOrganization
			g.logger.Debug("GeoIP ASN lookup successful",
				g.logger.Args("ip", info.IP, "asn", info.ASN, "org", info.ASNOrg))
		} else {
			g.logger.Debug("GeoIP ASN lookup failed", g.logger.Args("ip", info.IP, "error", err))
		}
	}

	g.cacheMu.Lock()
	if len(g.cache) >= g.cacheSize {
		g.evictLocked()
	}
	g.cache[info.IP] = &cachedHost{info: info, lastSeen: time.Now()}
	g.cacheMu.Unlock()

	return info
}

// evictLocked drops the least recently seen tenth of the cache.
func (g *GeoIPEnricher) evictLocked() {
	evictCount := g.cacheSize / 10
	if evictCount < 1 {
		evictCount = 1
	}

	type ipAge struct {
		ip       string
		lastSeen time.Time
	}
	ages := make([]ipAge, 0, len(g.cache))
	for ip, host := range g.cache {
		ages = append(ages, ipAge{ip: ip, lastSeen: host.lastSeen})
	}
	sort.Slice(ages, func(i, j int) bool { return ages[i].lastSeen.Before(ages[j].lastSeen) })

	evicted := 0
	for _, age := range ages {
		if evicted >= evictCount {
			break
		}
		delete(g.cache, age.ip)
		evicted++
	}

	g.logger.Debug("GeoIP cache eviction performed",
		g.logger.Args(
			"evicted", evicted,
			"cache_size", len(g.cache),
			"max_size", g.cacheSize,
		))
}

// Close closes the GeoIP databases.
func (g *GeoIPEnricher) Close() error {
	for _, r := range g.closers {
		r.Close()
	}
	if len(g.closers) > 0 {
		g.logger.Info("Closed GeoIP databases")
	}
	return nil
}

// IsEnabled returns whether GeoIP enrichment is available.
func (g *GeoIPEnricher) IsEnabled() bool {
	return g.enabled
}

// GetCacheSize returns the number of entries in memory cache.
func (g *GeoIPEnricher) GetCacheSize() int {
	g.cacheMu.RLock()
	defer g.cacheMu.RUnlock()
	return len(g.cache)
}
