package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/plx30080-ctrl/LeadGen/internal/db"
	"github.com/plx30080-ctrl/LeadGen/internal/model"
	"github.com/plx30080-ctrl/LeadGen/internal/normalize"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore over an open pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id               BIGSERIAL PRIMARY KEY,
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
	latitude         DOUBLE PRECISION,
	longitude        DOUBLE PRECISION,
	employee_count   INTEGER,
	annual_revenue   TEXT NOT NULL DEFAULT '',
	linkedin_url     TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	last_enriched_at TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_domain
	ON companies(domain) WHERE domain != '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_name_zip
	ON companies(name_key, zip_code) WHERE domain = '';
CREATE INDEX IF NOT EXISTS idx_companies_city_state ON companies(lower(city), lower(state));

CREATE TABLE IF NOT EXISTS contacts (
	id           BIGSERIAL PRIMARY KEY,
	company_id   BIGINT NOT NULL REFERENCES companies(id),
	first_name   TEXT NOT NULL DEFAULT '',
	last_name    TEXT NOT NULL DEFAULT '',
	full_name    TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	identity_key TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(company_id, identity_key)
);

CREATE TABLE IF NOT EXISTS job_postings (
	id           BIGSERIAL PRIMARY KEY,
	company_id   BIGINT NOT NULL REFERENCES companies(id),
	title        TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL,
	external_id  TEXT NOT NULL,
	external_url TEXT NOT NULL DEFAULT '',
	posted_at    TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(source, external_id)
);

CREATE TABLE IF NOT EXISTS leads (
	id             BIGSERIAL PRIMARY KEY,
	company_id     BIGINT NOT NULL REFERENCES companies(id),
	contact_id     BIGINT REFERENCES contacts(id),
	job_posting_id BIGINT REFERENCES job_postings(id),
	status         TEXT NOT NULL DEFAULT 'new',
	notes          TEXT NOT NULL DEFAULT '',
	tags           JSONB NOT NULL DEFAULT '[]',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_company_posting
	ON leads(company_id, job_posting_id) WHERE job_posting_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_company_manual
	ON leads(company_id) WHERE job_posting_id IS NULL;

CREATE TABLE IF NOT EXISTS review_queue (
	id           BIGSERIAL PRIMARY KEY,
	entity_type  TEXT NOT NULL,
	candidate    JSONB NOT NULL,
	best_id      BIGINT NOT NULL,
	runner_up_id BIGINT NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	address_key TEXT PRIMARY KEY,
	latitude    DOUBLE PRECISION,
	longitude   DOUBLE PRECISION,
	matched     BOOLEAN NOT NULL,
	cached_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS route_plans (
	id                 TEXT PRIMARY KEY,
	total_distance     DOUBLE PRECISION NOT NULL,
	estimated_duration INTEGER NOT NULL,
	map_url            TEXT NOT NULL DEFAULT '',
	failures           JSONB NOT NULL DEFAULT '[]',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS route_stops (
	plan_id                TEXT NOT NULL REFERENCES route_plans(id),
	stop_order             INTEGER NOT NULL,
	lead_id                BIGINT NOT NULL,
	company_name           TEXT NOT NULL,
	address                TEXT NOT NULL,
	distance_from_previous DOUBLE PRECISION,
	estimated_arrival      TEXT,
	PRIMARY KEY (plan_id, stop_order)
);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func isPostgresUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const pgCompanyCols = `id, name, name_key, domain, website, industry, phone,
	street, city, state, zip_code, country, latitude, longitude,
	employee_count, annual_revenue, linkedin_url, description,
	last_enriched_at, created_at, updated_at`

func pgScanCompany(row pgx.Row) (*model.Company, error) {
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

// CreateCompany inserts a company and sets its id.
func (s *PostgresStore) CreateCompany(ctx context.Context, c *model.Company) error {
	if c.NameKey == "" {
		c.NameKey = normalize.CompanyName(c.Name)
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO companies (
			name, name_key, domain, website, industry, phone,
			street, city, state, zip_code, country,
			latitude, longitude, employee_count, annual_revenue,
			linkedin_url, description, last_enriched_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING id, created_at, updated_at`,
		c.Name, c.NameKey, c.Domain, c.Website, c.Industry, c.Phone,
		c.Street, c.City, c.State, c.ZipCode, defaultCountry(c.Country),
		c.Latitude, c.Longitude, c.EmployeeCount, c.AnnualRevenue,
		c.LinkedInURL, c.Description, c.LastEnrichedAt,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isPostgresUnique(err) {
			return eris.Wrap(ErrDuplicateKey, "postgres: create company")
		}
		return eris.Wrap(err, "postgres: create company")
	}
	return nil
}

// UpdateCompany rewrites all mutable columns of a company row.
func (s *PostgresStore) UpdateCompany(ctx context.Context, c *model.Company) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE companies SET
			name=$2, name_key=$3, domain=$4, website=$5, industry=$6, phone=$7,
			street=$8, city=$9, state=$10, zip_code=$11, country=$12,
			latitude=$13, longitude=$14, employee_count=$15, annual_revenue=$16,
			linkedin_url=$17, description=$18, last_enriched_at=$19, updated_at=now()
		WHERE id=$1`,
		c.ID,
		c.Name, c.NameKey, c.Domain, c.Website, c.Industry, c.Phone,
		c.Street, c.City, c.State, c.ZipCode, defaultCountry(c.Country),
		c.Latitude, c.Longitude, c.EmployeeCount, c.AnnualRevenue,
		c.LinkedInURL, c.Description, c.LastEnrichedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company %d", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: company %d", c.ID)
	}
	return nil
}

// GetCompany fetches a company by id, nil when absent.
func (s *PostgresStore) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	c, err := pgScanCompany(s.pool.QueryRow(ctx,
		`SELECT `+pgCompanyCols+` FROM companies WHERE id=$1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, eris.Wrapf(err, "postgres: get company %d", id)
}

// GetCompanyByKey resolves the identity-key index.
func (s *PostgresStore) GetCompanyByKey(ctx context.Context, key string) (*model.Company, error) {
	var row pgx.Row
	switch {
	case strings.HasPrefix(key, "domain:"):
		row = s.pool.QueryRow(ctx,
			`SELECT `+pgCompanyCols+` FROM companies WHERE domain=$1`,
			strings.TrimPrefix(key, "domain:"))
	case strings.HasPrefix(key, "name:"):
		rest := strings.TrimPrefix(key, "name:")
		i := strings.LastIndexByte(rest, '|')
		if i < 0 {
			return nil, eris.Wrapf(model.ErrValidation, "postgres: malformed company key %q", key)
		}
		row = s.pool.QueryRow(ctx,
			`SELECT `+pgCompanyCols+` FROM companies WHERE domain='' AND name_key=$1 AND zip_code=$2`,
			rest[:i], rest[i+1:])
	default:
		return nil, eris.Wrapf(model.ErrValidation, "postgres: malformed company key %q", key)
	}
	c, err := pgScanCompany(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, eris.Wrap(err, "postgres: company by key")
}

// SearchCompaniesByCity returns the coarse candidate set for fuzzy matching.
func (s *PostgresStore) SearchCompaniesByCity(ctx context.Context, city, state string, limit int) ([]model.Company, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgCompanyCols+` FROM companies
		 WHERE lower(city)=lower($1) AND lower(state)=lower($2)
		 ORDER BY id LIMIT $3`,
		city, state, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := pgScanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: search companies rows")
}

// CreateContact inserts a contact and sets its id.
func (s *PostgresStore) CreateContact(ctx context.Context, c *model.Contact) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (company_id, first_name, last_name, full_name,
			title, email, phone, identity_key, source)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		c.CompanyID, c.FirstName, c.LastName, c.FullName,
		c.Title, c.Email, c.Phone, c.IdentityKey, c.Source,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isPostgresUnique(err) {
			return eris.Wrap(ErrDuplicateKey, "postgres: create contact")
		}
		return eris.Wrap(err, "postgres: create contact")
	}
	return nil
}

// UpdateContact rewrites a contact row.
func (s *PostgresStore) UpdateContact(ctx context.Context, c *model.Contact) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE contacts SET first_name=$2, last_name=$3, full_name=$4, title=$5,
			email=$6, phone=$7, identity_key=$8, source=$9, updated_at=now()
		WHERE id=$1`,
		c.ID, c.FirstName, c.LastName, c.FullName, c.Title,
		c.Email, c.Phone, c.IdentityKey, c.Source,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update contact %d", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: contact %d", c.ID)
	}
	return nil
}

const pgContactCols = `id, company_id, first_name, last_name, full_name, title,
	email, phone, identity_key, source, created_at, updated_at`

func pgScanContact(row pgx.Row) (*model.Contact, error) {
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
func (s *PostgresStore) GetContact(ctx context.Context, id int64) (*model.Contact, error) {
	c, err := pgScanContact(s.pool.QueryRow(ctx,
		`SELECT `+pgContactCols+` FROM contacts WHERE id=$1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, eris.Wrap(err, "postgres: contact by id")
}

// GetContactByKey looks up a contact by identity key within a company.
func (s *PostgresStore) GetContactByKey(ctx context.Context, companyID int64, key string) (*model.Contact, error) {
	c, err := pgScanContact(s.pool.QueryRow(ctx,
		`SELECT `+pgContactCols+` FROM contacts WHERE company_id=$1 AND identity_key=$2`,
		companyID, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, eris.Wrap(err, "postgres: contact by key")
}

// ListContacts returns every contact at a company.
func (s *PostgresStore) ListContacts(ctx context.Context, companyID int64) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgContactCols+` FROM contacts WHERE company_id=$1 ORDER BY id`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var out []model.Contact
	for rows.Next() {
		c, err := pgScanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list contacts rows")
}

// CreatePosting inserts a job posting and sets its id.
func (s *PostgresStore) CreatePosting(ctx context.Context, p *model.JobPosting) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO job_postings (company_id, title, location, source,
			external_id, external_url, posted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at`,
		p.CompanyID, p.Title, p.Location, p.Source,
		p.ExternalID, p.ExternalURL, p.PostedAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isPostgresUnique(err) {
			return eris.Wrap(ErrDuplicateKey, "postgres: create posting")
		}
		return eris.Wrap(err, "postgres: create posting")
	}
	return nil
}

// UpdatePosting rewrites a posting row.
func (s *PostgresStore) UpdatePosting(ctx context.Context, p *model.JobPosting) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE job_postings SET title=$2, location=$3, external_url=$4, posted_at=$5, updated_at=now()
		WHERE id=$1`,
		p.ID, p.Title, p.Location, p.ExternalURL, p.PostedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update posting %d", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: posting %d", p.ID)
	}
	return nil
}

// GetPostingByKey looks up a posting by its (source, external_id) identity.
func (s *PostgresStore) GetPostingByKey(ctx context.Context, source, externalID string) (*model.JobPosting, error) {
	p := &model.JobPosting{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, title, location, source, external_id,
			external_url, posted_at, created_at, updated_at
		FROM job_postings WHERE source=$1 AND external_id=$2`,
		source, externalID,
	).Scan(&p.ID, &p.CompanyID, &p.Title, &p.Location, &p.Source, &p.ExternalID,
		&p.ExternalURL, &p.PostedAt, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, eris.Wrap(err, "postgres: posting by key")
}

// CreateLead inserts a lead and sets its id.
func (s *PostgresStore) CreateLead(ctx context.Context, l *model.Lead) error {
	if l.Status == "" {
		l.Status = model.LeadStatusNew
	}
	tags, err := json.Marshal(tagsOrEmpty(l.Tags))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tags")
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO leads (company_id, contact_id, job_posting_id, status, notes, tags)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at`,
		l.CompanyID, l.ContactID, l.JobPostingID, string(l.Status), l.Notes, tags,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if isPostgresUnique(err) {
			return eris.Wrap(ErrDuplicateKey, "postgres: create lead")
		}
		return eris.Wrap(err, "postgres: create lead")
	}
	return nil
}

// UpdateLead rewrites a lead's mutable fields.
func (s *PostgresStore) UpdateLead(ctx context.Context, l *model.Lead) error {
	l.UpdatedAt = time.Now().UTC()
	tags, err := json.Marshal(tagsOrEmpty(l.Tags))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tags")
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE leads SET contact_id=$2, status=$3, notes=$4, tags=$5, updated_at=now()
		WHERE id=$1`,
		l.ID, l.ContactID, string(l.Status), l.Notes, tags,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %d", l.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: lead %d", l.ID)
	}
	return nil
}

const pgLeadCols = `id, company_id, contact_id, job_posting_id, status, notes, tags, created_at, updated_at`

func pgScanLead(row pgx.Row) (*model.Lead, error) {
	l := &model.Lead{}
	var status string
	var tags []byte
	err := row.Scan(&l.ID, &l.CompanyID, &l.ContactID, &l.JobPostingID,
		&status, &l.Notes, &tags, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = model.LeadStatus(status)
	if err := json.Unmarshal(tags, &l.Tags); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal tags")
	}
	return l, nil
}

// GetLead fetches a lead by id, nil when absent.
func (s *PostgresStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	l, err := pgScanLead(s.pool.QueryRow(ctx,
		`SELECT `+pgLeadCols+` FROM leads WHERE id=$1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return l, eris.Wrapf(err, "postgres: get lead %d", id)
}

// GetLeadByKey resolves the lead identity key.
func (s *PostgresStore) GetLeadByKey(ctx context.Context, companyID int64, jobPostingID *int64) (*model.Lead, error) {
	var row pgx.Row
	if jobPostingID != nil {
		row = s.pool.QueryRow(ctx,
			`SELECT `+pgLeadCols+` FROM leads WHERE company_id=$1 AND job_posting_id=$2`,
			companyID, *jobPostingID)
	} else {
		row = s.pool.QueryRow(ctx,
			`SELECT `+pgLeadCols+` FROM leads WHERE company_id=$1 AND job_posting_id IS NULL`,
			companyID)
	}
	l, err := pgScanLead(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return l, eris.Wrap(err, "postgres: lead by key")
}

// GetLeadDetails joins leads with their companies, preserving input order.
func (s *PostgresStore) GetLeadDetails(ctx context.Context, ids []int64) ([]LeadDetail, error) {
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
func (s *PostgresStore) EnqueueReview(ctx context.Context, item *ReviewItem) error {
	payload, err := json.Marshal(item.Candidate)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal review candidate")
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO review_queue (entity_type, candidate, best_id, runner_up_id, score)
		VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		string(item.EntityType), payload, item.BestID, item.RunnerUpID, item.Score,
	).Scan(&item.ID)
	return eris.Wrap(err, "postgres: enqueue review")
}

// ListReview returns pending review items, oldest first.
func (s *PostgresStore) ListReview(ctx context.Context, limit int) ([]ReviewItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, entity_type, candidate, best_id, runner_up_id, score
		FROM review_queue ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list review")
	}
	defer rows.Close()

	var out []ReviewItem
	for rows.Next() {
		var item ReviewItem
		var entityType string
		var payload []byte
		if err := rows.Scan(&item.ID, &entityType, &payload,
			&item.BestID, &item.RunnerUpID, &item.Score); err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		item.EntityType = model.CandidateType(entityType)
		if err := json.Unmarshal(payload, &item.Candidate); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal review candidate")
		}
		out = append(out, item)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list review rows")
}

// GetReview looks up one pending review item.
func (s *PostgresStore) GetReview(ctx context.Context, id int64) (*ReviewItem, error) {
	var item ReviewItem
	var entityType string
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, entity_type, candidate, best_id, runner_up_id, score
		FROM review_queue WHERE id=$1`, id).
		Scan(&item.ID, &entityType, &payload, &item.BestID, &item.RunnerUpID, &item.Score)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: review by id")
	}
	item.EntityType = model.CandidateType(entityType)
	if err := json.Unmarshal(payload, &item.Candidate); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal review candidate")
	}
	return &item, nil
}

// DeleteReview removes a resolved review item.
func (s *PostgresStore) DeleteReview(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM review_queue WHERE id=$1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete review %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: review item %d", id)
	}
	return nil
}

// GetCachedPoint looks up the geocode cache, including negative entries.
func (s *PostgresStore) GetCachedPoint(ctx context.Context, addressKey string) (*model.GeoPoint, bool, error) {
	var lat, lon *float64
	var matched bool
	err := s.pool.QueryRow(ctx,
		`SELECT latitude, longitude, matched FROM geocode_cache WHERE address_key=$1`,
		addressKey,
	).Scan(&lat, &lon, &matched)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: geocode cache get")
	}
	if !matched || lat == nil || lon == nil {
		return nil, true, nil
	}
	return &model.GeoPoint{Latitude: *lat, Longitude: *lon}, true, nil
}

// PutCachedPoint upserts a geocode result, negative markers included.
func (s *PostgresStore) PutCachedPoint(ctx context.Context, addressKey string, pt *model.GeoPoint) error {
	var lat, lon any
	matched := pt != nil
	if matched {
		lat, lon = pt.Latitude, pt.Longitude
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO geocode_cache (address_key, latitude, longitude, matched, cached_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (address_key) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			matched = EXCLUDED.matched,
			cached_at = EXCLUDED.cached_at`,
		addressKey, lat, lon, matched,
	)
	return eris.Wrap(err, "postgres: geocode cache put")
}

// SaveRoutePlan persists a plan and its stops in one transaction.
func (s *PostgresStore) SaveRoutePlan(ctx context.Context, plan *model.RoutePlan) error {
	failures, err := json.Marshal(plan.Failures)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal plan failures")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin plan tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO route_plans (id, total_distance, estimated_duration, map_url, failures, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		plan.ID, plan.TotalDistance, plan.EstimatedDuration, plan.MapURL,
		failures, plan.CreatedAt,
	); err != nil {
		return eris.Wrap(err, "postgres: insert plan")
	}
	for _, stop := range plan.Stops {
		if _, err := tx.Exec(ctx, `
			INSERT INTO route_stops (plan_id, stop_order, lead_id, company_name,
				address, distance_from_previous, estimated_arrival)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			plan.ID, stop.Order, stop.LeadID, stop.CompanyName,
			stop.Address, stop.DistanceFromPrevious, stop.EstimatedArrival,
		); err != nil {
			return eris.Wrap(err, "postgres: insert stop")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit plan")
}

// GetRoutePlan fetches a stored plan with its stops in order.
func (s *PostgresStore) GetRoutePlan(ctx context.Context, id string) (*model.RoutePlan, error) {
	plan := &model.RoutePlan{}
	var failures []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, total_distance, estimated_duration, map_url, failures, created_at
		FROM route_plans WHERE id=$1`, id,
	).Scan(&plan.ID, &plan.TotalDistance, &plan.EstimatedDuration,
		&plan.MapURL, &failures, &plan.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get plan %s", id)
	}
	if err := json.Unmarshal(failures, &plan.Failures); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal plan failures")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT lead_id, company_name, address, stop_order,
			distance_from_previous, estimated_arrival
		FROM route_stops WHERE plan_id=$1 ORDER BY stop_order`, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: plan stops")
	}
	defer rows.Close()
	for rows.Next() {
		var stop model.RouteStop
		if err := rows.Scan(&stop.LeadID, &stop.CompanyName, &stop.Address,
			&stop.Order, &stop.DistanceFromPrevious, &stop.EstimatedArrival); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stop")
		}
		plan.Stops = append(plan.Stops, stop)
	}
	return plan, eris.Wrap(rows.Err(), "postgres: plan stops rows")
}

// GetStats counts the stored entity graph.
func (s *PostgresStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM companies),
			(SELECT COUNT(*) FROM contacts),
			(SELECT COUNT(*) FROM job_postings),
			(SELECT COUNT(*) FROM leads)`,
	).Scan(&stats.Companies, &stats.Contacts, &stats.JobPostings, &stats.Leads)
	return stats, eris.Wrap(err, "postgres: stats")
}
