package models

import "time"

// DomainReputation is one cached MyWOT answer for a domain.
// Category columns are nullable: NULL means the category was not rated.
type DomainReputation struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Domain     string    `gorm:"size:255;not null;uniqueIndex:idx_domain_reputation_domain"`
	LastUpdate time.Time `gorm:"not null;index:idx_domain_reputation_last_update"`

	// Trustworthiness
	Reputation0 *int `gorm:"column:reputation_0"`
	Confidence0 *int `gorm:"column:confidence_0"`
	// Vendor reliability
	Reputation1 *int `gorm:"column:reputation_1"`
	Confidence1 *int `gorm:"column:confidence_1"`
	// Privacy
	Reputation2 *int `gorm:"column:reputation_2"`
	Confidence2 *int `gorm:"column:confidence_2"`
	// Child safety
	Reputation4 *int `gorm:"column:reputation_4"`
	Confidence4 *int `gorm:"column:confidence_4"`

	// Host enrichment (optional)
	HostIP          string `gorm:"column:host_ip"`
	HostCountry     string `gorm:"column:host_country;index:idx_domain_reputation_country"`
	HostCountryName string `gorm:"column:host_country_name"`
	HostASN         int    `gorm:"column:host_asn"`
	HostASNOrg      string `gorm:"column:host_asn_org"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (DomainReputation) TableName() string {
	return "domain_reputation"
}
