package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
	"github.com/plx30080-ctrl/LeadGen/internal/normalize"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	name_key         TEXT NOT NULL,
	domain           TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL DEFAULT '',
	industry         TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	street           TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	zip_code         TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT 'USA',
	latitude         REAL,
	longitude        REAL,
	employee_count   INTEGER,
	annual_revenue   TEXT NOT NULL DEFAULT '',
	linkedin_url     TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	last_enriched_at DATETIME,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_domain
	ON companies(domain) WHERE domain != '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_name_zip
	ON companies(name_key, zip_code) WHERE domain = '';
CREATE INDEX IF NOT EXISTS idx_companies_city_state ON companies(city, state);

CREATE TABLE IF NOT EXISTS contacts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id   INTEGER NOT NULL REFERENCES companies(id),
	first_name   TEXT NOT NULL DEFAULT '',
	last_name    TEXT NOT NULL DEFAULT '',
	full_name    TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	identity_key TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(company_id, identity_key)
);

CREATE TABLE IF NOT EXISTS job_postings (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id   INTEGER NOT NULL REFERENCES companies(id),
	title        TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL,
	external_id  TEXT NOT NULL,
	external_url TEXT NOT NULL DEFAULT '',
	posted_at    DATETIME,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(source, external_id)
);

CREATE TABLE IF NOT EXISTS leads (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id     INTEGER NOT NULL REFERENCES companies(id),
	contact_id     INTEGER REFERENCES contacts(id),
	job_posting_id INTEGER REFERENCES job_postings(id),
	status         TEXT NOT NULL DEFAULT 'new',
	notes          TEXT NOT NULL DEFAULT '',
	tags           TEXT NOT NULL DEFAULT '[]',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_company_posting
	ON leads(company_id, job_posting_id) WHERE job_posting_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_company_manual
	ON leads(company_id) WHERE job_posting_id IS NULL;

CREATE TABLE IF NOT EXISTS review_queue (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type  TEXT NOT NULL,
	candidate    TEXT NOT NULL,
	best_id      INTEGER NOT NULL,
	runner_up_id INTEGER NOT NULL,
	score        REAL NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	address_key TEXT PRIMARY KEY,
	latitude    REAL,
	longitude   REAL,
	matched     INTEGER NOT NULL,
	cached_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS route_plans (
	id                 TEXT PRIMARY KEY,
	total_distance     REAL NOT NULL,
	estimated_duration INTEGER NOT NULL,
	map_url            TEXT NOT NULL DEFAULT '',
	failures           TEXT NOT NULL DEFAULT '[]',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS route_stops (
	plan_id                TEXT NOT NULL REFERENCES route_plans(id),
	stop_order             INTEGER NOT NULL,
	lead_id                INTEGER NOT NULL,
	company_name           TEXT NOT NULL,
	address                TEXT NOT NULL,
	distance_from_previous REAL,
	estimated_arrival      TEXT,
	PRIMARY KEY (plan_id, stop_order)
);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateCompany inserts a company, computing its name key when unset.
func (s *SQLiteStore) CreateCompany(ctx context.Context, c *model.Company) error {
	if c.NameKey == "" {
		c.NameKey = normalize.CompanyName(c.Name)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (
			name, name_key, domain, website, industry, phone,
			street, city, state, zip_code, country,
			latitude, longitude, employee_count, annual_revenue,
			linkedin_url, description, last_enriched_at, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.Name, c.NameKey, c.Domain, c.Website, c.Industry, c.Phone,
		c.Street, c.City, c.State, c.ZipCode, defaultCountry(c.Country),
		c.Latitude, c.Longitude, c.EmployeeCount, c.AnnualRevenue,
		c.LinkedInURL, c.Description, c.LastEnrichedAt, now, now,
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return eris.Wrap(ErrDuplicateKey, "sqlite: create company")
		}
		return eris.Wrap(err, "sqlite: create company")
	}
	c.ID, err = res.LastInsertId()
	c.CreatedAt, c.UpdatedAt = now, now
	return eris.Wrap(err, "sqlite: company insert id")
}

// UpdateCompany rewrites all mutable columns of a company row.
func (s *SQLiteStore) UpdateCompany(ctx context.Context, c *model.Company) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE companies SET
			name=?, name_key=?, domain=?, website=?, industry=?, phone=?,
			street=?, city=?, state=?, zip_code=?, country=?,
			latitude=?, longitude=?, employee_count=?, annual_revenue=?,
			linkedin_url=?, description=?, last_enriched_at=?, updated_at=?
		WHERE id=?`,
		c.Name, c.NameKey, c.Domain, c.Website, c.Industry, c.Phone,
		c.Street, c.City, c.State, c.ZipCode, defaultCountry(c.Country),
		c.Latitude, c.Longitude, c.EmployeeCount, c.AnnualRevenue,
		c.LinkedInURL, c.Description, c.LastEnrichedAt, c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company %d", c.ID)
	}
	return checkRowsAffected(res, "company")
}

const companyCols = `id, name, name_key, domain, website, industry, phone,
	street, city, state, zip_code, country, latitude, longitude,
	employee_count, annual_revenue, linkedin_url, description,
	last_enriched_at, created_at, updated_at`

func scanCompany(row interface{ Scan(...any) error }) (*model.Company, error) {
	c := &model.Company{}
	err := row.Scan(
		&c.ID, &c.Name, &c.NameKey, &c.Domain, &c.Website, &c.Industry, &c.Phone,
		&c.Street, &c.City, &c.State, &c.ZipCode, &c.Country, &c.Latitude, &c.Longitude,
		&c.EmployeeCount, &c.AnnualRevenue, &c.LinkedInURL, &c.Description,
		&c.LastEnrichedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCompany fetches a company by id, nil when absent.
func (s *SQLiteStore) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	c, err := scanCompany(s.db.QueryRowContext(ctx,
		`SELECT `+companyCols+` FROM companies WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, eris.Wrapf(err, "sqlite: get company %d", id)
}

// GetCompanyByKey resolves the identity-key index: "domain:<d>" rows match on
// domain, "name:<key>|<zip>" rows match on the fallback name+zip index.
func (s *SQLiteStore) GetCompanyByKey(ctx context.Context, key string) (*model.Company, error) {
	var row *sql.Row
	switch {
	case strings.HasPrefix(key, "domain:"):
		row = s.db.QueryRowContext(ctx,
			`SELECT `+companyCols+` FROM companies WHERE domain=?`,
			strings.TrimPrefix(key, "domain:"))
	case strings.HasPrefix(key, "name:"):
		rest := strings.TrimPrefix(key, "name:")
		i := strings.LastIndexByte(rest, '|')
		if i < 0 {
			return nil, eris.Wrapf(model.ErrValidation, "sqlite: malformed company key %q", key)
		}
		row = s.db.QueryRowContext(ctx,
			`SELECT `+companyCols+` FROM companies WHERE domain='' AND name_key=? AND zip_code=?`,
			rest[:i], rest[i+1:])
	default:
		return nil, eris.Wrapf(model.ErrValidation, "sqlite: malformed company key %q", key)
	}
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, eris.Wrap(err, "sqlite: company by key")
}

// SearchCompaniesByCity returns the coarse candidate set for fuzzy matching.
func (s *SQLiteStore) SearchCompaniesByCity(ctx context.Context, city, state string, limit int) ([]model.Company, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+companyCols+` FROM companies
		 WHERE lower(city)=lower(?) AND lower(state)=lower(?)
		 ORDER BY id LIMIT ?`,
		city, state, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: search companies rows")
}

// CreateContact inserts a contact row.
func (s *SQLiteStore) CreateContact(ctx context.Context, c *model.Contact) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (company_id, first_name, last_name, full_name,
			title, email, phone, identity_key, source, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.CompanyID, c.FirstName, c.LastName, c.FullName,
		c.Title, c.Email, c.Phone, c.IdentityKey, c.Source, now, now,
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return eris.Wrap(ErrDuplicateKey, "sqlite: create contact")
		}
		return eris.Wrap(err, "sqlite: create contact")
	}
	c.ID, err = res.LastInsertId()
	c.CreatedAt, c.UpdatedAt = now, now
	return eris.Wrap(err, "sqlite: contact insert id")
}

// UpdateContact rewrites a contact row.
func (s *SQLiteStore) UpdateContact(ctx context.Context, c *model.Contact) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET first_name=?, last_name=?, full_name=?, title=?,
			email=?, phone=?, identity_key=?, source=?, updated_at=?
		WHERE id=?`,
		c.FirstName, c.LastName, c.FullName, c.Title,
		c.Email, c.Phone, c.IdentityKey, c.Source, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update contact %d", c.ID)
	}
	return checkRowsAffected(res, "contact")
}

const contactCols = `id, company_id, first_name, last_name, full_name, title,
	email, phone, identity_key, source, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (*model.Contact, error) {
	c := &model.Contact{}
	err := row.Scan(&c.ID, &c.CompanyID, &c.FirstName, &c.LastName, &c.FullName,
		&c.Title, &c.Email, &c.Phone, &c.IdentityKey, &c.Source,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetContact looks up a contact by id.
func (s *SQLiteStore) GetContact(ctx context.Context, id int64) (*model.Contact, error) {
	c, err := scanContact(s.db.QueryRowContext(ctx,
		`SELECT `+contactCols+` FROM contacts WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, eris.Wrap(err, "sqlite: contact by id")
}

// GetContactByKey looks up a contact by identity key within a company.
func (s *SQLiteStore) GetContactByKey(ctx context.Context, companyID int64, key string) (*model.Contact, error) {
	c, err := scanContact(s.db.QueryRowContext(ctx,
		`SELECT `+contactCols+` FROM contacts WHERE company_id=? AND identity_key=?`,
		companyID, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, eris.Wrap(err, "sqlite: contact by key")
}

// ListContacts returns every contact at a company, the matcher's coarse set.
func (s *SQLiteStore) ListContacts(ctx context.Context, companyID int64) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactCols+` FROM contacts WHERE company_id=? ORDER BY id`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var out []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list contacts rows")
}

// CreatePosting inserts a job posting row.
func (s *SQLiteStore) CreatePosting(ctx context.Context, p *model.JobPosting) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO job_postings (company_id, title, location, source,
			external_id, external_url, posted_at, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		p.CompanyID, p.Title, p.Location, p.Source,
		p.ExternalID, p.ExternalURL, p.PostedAt, now, now,
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return eris.Wrap(ErrDuplicateKey, "sqlite: create posting")
		}
		return eris.Wrap(err, "sqlite: create posting")
	}
	p.ID, err = res.LastInsertId()
	p.CreatedAt, p.UpdatedAt = now, now
	return eris.Wrap(err, "sqlite: posting insert id")
}

// UpdatePosting rewrites a posting row.
func (s *SQLiteStore) UpdatePosting(ctx context.Context, p *model.JobPosting) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_postings SET title=?, location=?, external_url=?, posted_at=?, updated_at=?
		WHERE id=?`,
		p.Title, p.Location, p.ExternalURL, p.PostedAt, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update posting %d", p.ID)
	}
	return checkRowsAffected(res, "posting")
}

// GetPostingByKey looks up a posting by its (source, external_id) identity.
func (s *SQLiteStore) GetPostingByKey(ctx context.Context, source, externalID string) (*model.JobPosting, error) {
	p := &model.JobPosting{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, title, location, source, external_id,
			external_url, posted_at, created_at, updated_at
		FROM job_postings WHERE source=? AND external_id=?`,
		source, externalID,
	).Scan(&p.ID, &p.CompanyID, &p.Title, &p.Location, &p.Source, &p.ExternalID,
		&p.ExternalURL, &p.PostedAt, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, eris.Wrap(err, "sqlite: posting by key")
}

// CreateLead inserts a lead row.
func (s *SQLiteStore) CreateLead(ctx context.Context, l *model.Lead) error {
	now := time.Now().UTC()
	if l.Status == "" {
		l.Status = model.LeadStatusNew
	}
	tags, err := json.Marshal(tagsOrEmpty(l.Tags))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tags")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (company_id, contact_id, job_posting_id, status,
			notes, tags, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		l.CompanyID, l.ContactID, l.JobPostingID, string(l.Status),
		l.Notes, string(tags), now, now,
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return eris.Wrap(ErrDuplicateKey, "sqlite: create lead")
		}
		return eris.Wrap(err, "sqlite: create lead")
	}
	l.ID, err = res.LastInsertId()
	l.CreatedAt, l.UpdatedAt = now, now
	return eris.Wrap(err, "sqlite: lead insert id")
}

// UpdateLead rewrites a lead's mutable fields (status, notes, tags, contact).
func (s *SQLiteStore) UpdateLead(ctx context.Context, l *model.Lead) error {
	l.UpdatedAt = time.Now().UTC()
	tags, err := json.Marshal(tagsOrEmpty(l.Tags))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tags")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET contact_id=?, status=?, notes=?, tags=?, updated_at=?
		WHERE id=?`,
		l.ContactID, string(l.Status), l.Notes, string(tags), l.UpdatedAt, l.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %d", l.ID)
	}
	return checkRowsAffected(res, "lead")
}

func scanLead(row interface{ Scan(...any) error }) (*model.Lead, error) {
	l := &model.Lead{}
	var status, tags string
	err := row.Scan(&l.ID, &l.CompanyID, &l.ContactID, &l.JobPostingID,
		&status, &l.Notes, &tags, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = model.LeadStatus(status)
	if err := json.Unmarshal([]byte(tags), &l.Tags); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal tags")
	}
	return l, nil
}

const leadCols = `id, company_id, contact_id, job_posting_id, status, notes, tags, created_at, updated_at`

// GetLead fetches a lead by id, nil when absent.
func (s *SQLiteStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	l, err := scanLead(s.db.QueryRowContext(ctx,
		`SELECT `+leadCols+` FROM leads WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, eris.Wrapf(err, "sqlite: get lead %d", id)
}

// GetLeadByKey resolves the lead identity key: (company, posting) when a
// posting exists, company alone for manual leads.
func (s *SQLiteStore) GetLeadByKey(ctx context.Context, companyID int64, jobPostingID *int64) (*model.Lead, error) {
	var row *sql.Row
	if jobPostingID != nil {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+leadCols+` FROM leads WHERE company_id=? AND job_posting_id=?`,
			companyID, *jobPostingID)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+leadCols+` FROM leads WHERE company_id=? AND job_posting_id IS NULL`,
			companyID)
	}
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, eris.Wrap(err, "sqlite: lead by key")
}

// GetLeadDetails joins leads with their companies, preserving input order.
func (s *SQLiteStore) GetLeadDetails(ctx context.Context, ids []int64) ([]LeadDetail, error) {
	out := make([]LeadDetail, 0, len(ids))
	for _, id := range ids {
		l, err := s.GetLead(ctx, id)
		if err != nil {
			return nil, err
		}
		if l == nil {
			continue
		}
		c, err := s.GetCompany(ctx, l.CompanyID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		out = append(out, LeadDetail{Lead: *l, Company: *c})
	}
	return out, nil
}

// EnqueueReview holds an ambiguous candidate for manual disambiguation.
func (s *SQLiteStore) EnqueueReview(ctx context.Context, item *ReviewItem) error {
	payload, err := json.Marshal(item.Candidate)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal review candidate")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO review_queue (entity_type, candidate, best_id, runner_up_id, score)
		VALUES (?,?,?,?,?)`,
		string(item.EntityType), string(payload), item.BestID, item.RunnerUpID, item.Score,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: enqueue review")
	}
	item.ID, err = res.LastInsertId()
	return eris.Wrap(err, "sqlite: review insert id")
}

// ListReview returns pending review items, oldest first.
func (s *SQLiteStore) ListReview(ctx context.Context, limit int) ([]ReviewItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, candidate, best_id, runner_up_id, score
		FROM review_queue ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list review")
	}
	defer rows.Close()

	var out []ReviewItem
	for rows.Next() {
		var item ReviewItem
		var entityType, payload string
		if err := rows.Scan(&item.ID, &entityType, &payload,
			&item.BestID, &item.RunnerUpID, &item.Score); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		item.EntityType = model.CandidateType(entityType)
		if err := json.Unmarshal([]byte(payload), &item.Candidate); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal review candidate")
		}
		out = append(out, item)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list review rows")
}

// GetReview looks up one pending review item.
func (s *SQLiteStore) GetReview(ctx context.Context, id int64) (*ReviewItem, error) {
	var item ReviewItem
	var entityType, payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, entity_type, candidate, best_id, runner_up_id, score
		FROM review_queue WHERE id=?`, id).
		Scan(&item.ID, &entityType, &payload, &item.BestID, &item.RunnerUpID, &item.Score)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: review by id")
	}
	item.EntityType = model.CandidateType(entityType)
	if err := json.Unmarshal([]byte(payload), &item.Candidate); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal review candidate")
	}
	return &item, nil
}

// DeleteReview removes a resolved review item.
func (s *SQLiteStore) DeleteReview(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM review_queue WHERE id=?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete review %d", id)
	}
	return checkRowsAffected(res, "review item")
}

// GetCachedPoint looks up the geocode cache. Unresolvable addresses are
// cached too, so a hit with a nil point means "known bad, don't retry".
func (s *SQLiteStore) GetCachedPoint(ctx context.Context, addressKey string) (*model.GeoPoint, bool, error) {
	var lat, lon sql.NullFloat64
	var matched bool
	err := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, matched FROM geocode_cache WHERE address_key=?`,
		addressKey,
	).Scan(&lat, &lon, &matched)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: geocode cache get")
	}
	if !matched {
		return nil, true, nil
	}
	return &model.GeoPoint{Latitude: lat.Float64, Longitude: lon.Float64}, true, nil
}

// PutCachedPoint upserts a geocode result. Concurrent fills race safely:
// writes are idempotent upserts keyed by the normalized address.
func (s *SQLiteStore) PutCachedPoint(ctx context.Context, addressKey string, pt *model.GeoPoint) error {
	var lat, lon any
	matched := pt != nil
	if matched {
		lat, lon = pt.Latitude, pt.Longitude
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_key, latitude, longitude, matched, cached_at)
		VALUES (?,?,?,?,datetime('now'))
		ON CONFLICT(address_key) DO UPDATE SET
			latitude=excluded.latitude,
			longitude=excluded.longitude,
			matched=excluded.matched,
			cached_at=excluded.cached_at`,
		addressKey, lat, lon, matched,
	)
	return eris.Wrap(err, "sqlite: geocode cache put")
}

// SaveRoutePlan persists a plan and its stops in one transaction.
func (s *SQLiteStore) SaveRoutePlan(ctx context.Context, plan *model.RoutePlan) error {
	failures, err := json.Marshal(plan.Failures)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal plan failures")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin plan tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO route_plans (id, total_distance, estimated_duration, map_url, failures, created_at)
		VALUES (?,?,?,?,?,?)`,
		plan.ID, plan.TotalDistance, plan.EstimatedDuration, plan.MapURL,
		string(failures), plan.CreatedAt,
	); err != nil {
		return eris.Wrap(err, "sqlite: insert plan")
	}
	for _, stop := range plan.Stops {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO route_stops (plan_id, stop_order, lead_id, company_name,
				address, distance_from_previous, estimated_arrival)
			VALUES (?,?,?,?,?,?,?)`,
			plan.ID, stop.Order, stop.LeadID, stop.CompanyName,
			stop.Address, stop.DistanceFromPrevious, stop.EstimatedArrival,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert stop")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit plan")
}

// GetRoutePlan fetches a stored plan with its stops in order.
func (s *SQLiteStore) GetRoutePlan(ctx context.Context, id string) (*model.RoutePlan, error) {
	plan := &model.RoutePlan{}
	var failures string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, total_distance, estimated_duration, map_url, failures, created_at
		FROM route_plans WHERE id=?`, id,
	).Scan(&plan.ID, &plan.TotalDistance, &plan.EstimatedDuration,
		&plan.MapURL, &failures, &plan.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get plan %s", id)
	}
	if err := json.Unmarshal([]byte(failures), &plan.Failures); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal plan failures")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT lead_id, company_name, address, stop_order,
			distance_from_previous, estimated_arrival
		FROM route_stops WHERE plan_id=? ORDER BY stop_order`, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: plan stops")
	}
	defer rows.Close()
	for rows.Next() {
		var stop model.RouteStop
		if err := rows.Scan(&stop.LeadID, &stop.CompanyName, &stop.Address,
			&stop.Order, &stop.DistanceFromPrevious, &stop.EstimatedArrival); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stop")
		}
		plan.Stops = append(plan.Stops, stop)
	}
	return plan, eris.Wrap(rows.Err(), "sqlite: plan stops rows")
}

// GetStats counts the stored entity graph.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	for _, q := range []struct {
		table string
		dst   *int64
	}{
		{"companies", &stats.Companies},
		{"contacts", &stats.Contacts},
		{"job_postings", &stats.JobPostings},
		{"leads", &stats.Leads},
	} {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+q.table).Scan(q.dst); err != nil {
			return nil, eris.Wrapf(err, "sqlite: count %s", q.table)
		}
	}
	return stats, nil
}

func checkRowsAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s", entity)
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "sqlite: %s", entity)
	}
	return nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func defaultCountry(c string) string {
	if c == "" {
		return "USA"
	}
	return c
}
