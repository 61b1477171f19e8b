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
package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wotcache/internal/database/models"
	"wotcache/internal/reputation"

	"gorm.io/gorm"
)

// DomainReputationRepository is the gorm-backed reputation.Store, plus the
// administrative queries used by the purge service and the system endpoint.
type DomainReputationRepository interface {
	reputation.Store
	Count(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type domainReputationRepo struct {
	db *gorm.DB
}

func NewDomainReputationRepository(db *gorm.DB) DomainReputationRepository {
	return &domainReputationRepo{db: db}
}

func (r *domainReputationRepo) FindByDomain(ctx context.Context, domain string) (*reputation.Record, error) {
	var row models.DomainReputation
	err := r.db.WithContext(ctx).Where("domain = ?", domain).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, reputation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", domain, err)
	}
	return toRecord(&row), nil
}

func (r *domainReputationRepo) Insert(ctx context.Context, record *reputation.Record) error {
	row := fromRecord(record)
	row.ID = 0
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return reputation.ErrDuplicateKey
		}
		return fmt.Errorf("insert %s: %w", record.Domain, err)
	}
	record.ID = row.ID
	record.CreatedAt = row.CreatedAt.UTC()
	return nil
}

// Update rewrites everything but the domain and identity of an existing row.
// A record whose domain no longer matches its stored row is rejected.
func (r *domainReputationRepo) Update(ctx context.Context, record *reputation.Record) error {
	row := fromRecord(record)
	result := r.db.WithContext(ctx).
		Model(&models.DomainReputation{}).
		Where("id = ? AND domain = ?", record.ID, record.Domain).
		Updates(map[string]any{
			"last_update":       row.LastUpdate,
			"reputation_0":      row.Reputation0,
			"confidence_0":      row.Confidence0,
			"reputation_1":      row.Reputation1,
			"confidence_1":      row.Confidence1,
			"reputation_2":      row.Reputation2,
			"confidence_2":      row.Confidence2,
			"reputation_4":      row.Reputation4,
			"confidence_4":      row.Confidence4,
			"host_ip":           row.HostIP,
			"host_country":      row.HostCountry,
			"host_country_name": row.HostCountryName,
			"host_asn":          row.HostASN,
			"host_asn_org":      row.HostASNOrg,
		})
	if result.Error != nil {
		return fmt.Errorf("update %s: %w", record.Domain, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DomainReputation{}).Where("id = ?", record.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("update %s: %w", record.Domain, err)
	}
	if count > 0 {
		return reputation.ErrDomainImmutable
	}
	return reputation.ErrNotFound
}

func (r *domainReputationRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DomainReputation{}).Count(&count).Error
	return count, err
}

// DeleteOlderThan removes at most limit rows last refreshed before cutoff.
func (r *domainReputationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		DELETE FROM domain_reputation
		WHERE id IN (
			SELECT id FROM domain_reputation
			WHERE last_update < ?
			LIMIT ?
		)
	`, cutoff.UTC(), limit)
	return result.RowsAffected, result.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toRecord(row *models.DomainReputation) *reputation.Record {
	record := &reputation.Record{
		ID:         row.ID,
		Domain:     row.Domain,
		LastUpdate: row.LastUpdate.UTC(),
		Metrics:    reputation.Metrics{},
		Host: reputation.HostInfo{
			IP:          row.HostIP,
			Country:     row.HostCountry,
			CountryName: row.HostCountryName,
			ASN:         row.HostASN,
			ASNOrg:      row.HostASNOrg,
		},
		CreatedAt: row.CreatedAt.UTC(),
	}
	put := func(c reputation.Category, rep, conf *int) {
		if rep == nil && conf == nil {
			return
		}
		record.Metrics[c] = reputation.Metric{Reputation: rep, Confidence: conf}
	}
	put(reputation.Trustworthiness, row.Reputation0, row.Confidence0)
	put(reputation.VendorReliability, row.Reputation1, row.Confidence1)
	put(reputation.Privacy, row.Reputation2, row.Confidence2)
	put(reputation.ChildSafety, row.Reputation4, row.Confidence4)
	return record
}

func fromRecord(record *reputation.Record) *models.DomainReputation {
	row := &models.DomainReputation{
		ID:              record.ID,
		Domain:          record.Domain,
		LastUpdate:      record.LastUpdate.UTC(),
		HostIP:          record.Host.IP,
		HostCountry:     record.Host.Country,
		HostCountryName: record.Host.CountryName,
		HostASN:         record.Host.ASN,
		HostASNOrg:      record.Host.ASNOrg,
	}
	m := record.Metric(reputation.Trustworthiness)
	row.Reputation0, row.Confidence0 = m.Reputation, m.Confidence
	m = record.Metric(reputation.VendorReliability)
	row.Reputation1, row.Confidence1 = m.Reputation, m.Confidence
	m = record.Metric(reputation.Privacy)
	row.Reputation2, row.Confidence2 = m.Reputation, m.Confidence
	m = record.Metric(reputation.ChildSafety)
	row.Reputation4, row.Confidence4 = m.Reputation, m.Confidence
	return row
}
