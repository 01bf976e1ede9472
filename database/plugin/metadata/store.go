// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metadata

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/blinklabs-io/certledger/database/models"
	"github.com/blinklabs-io/certledger/database/plugin"
	"github.com/blinklabs-io/certledger/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// MetadataStore holds the relational ledger state. Every method accepts an
// optional transaction; a nil transaction runs against the base connection.
type MetadataStore interface {
	plugin.Plugin

	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn
	NextSequence(string, types.Txn) (uint64, error)

	// Identities
	AddIdentity(*models.Identity, types.Txn) error
	GetIdentity(string, types.Txn) (*models.Identity, error)
	SetIdentityGraduated(string, bool, types.Txn) error

	// Certificates
	AddCertificate(*models.Certificate, types.Txn) error
	GetCertificate(uint64, types.Txn) (*models.Certificate, error)
	GetCertificatesByHolder(string, types.Txn) ([]models.Certificate, error)
	SetCertificateRevoked(uint64, time.Time, types.Txn) (bool, error)
	SetCertificatePhotoRef(uint64, string, types.Txn) error
	IsSerialUsed(string, types.Txn) (bool, error)
	IsMemoUsed(string, types.Txn) (bool, error)

	// Scholarships
	AddScholarship(*models.Scholarship, types.Txn) error
	GetScholarship(uint64, types.Txn) (*models.Scholarship, error)
	GetScholarships(bool, types.Txn) ([]models.Scholarship, error)
	SetScholarshipInactive(uint64, time.Time, types.Txn) (bool, error)
	AddClaim(*models.Claim, types.Txn) error
	GetClaim(uint64, string, types.Txn) (*models.Claim, error)
	GetClaims(uint64, types.Txn) ([]models.Claim, error)
	GetClaimTotals(uint64, types.Txn) (uint64, uint64, error)

	// Custody
	GetBalance(string, string, types.Txn) (uint64, error)
	SetBalance(string, string, uint64, types.Txn) error
	GetAllowance(string, string, types.Txn) (uint64, error)
	SetAllowance(string, string, uint64, types.Txn) error
}

// New returns the started metadata plugin selected by name
func New(
	pluginName string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	p, err := plugin.StartPlugin(
		plugin.PluginTypeMetadata,
		pluginName,
		logger,
		promRegistry,
	)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
