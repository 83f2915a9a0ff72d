package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/reporting"

	_ "github.com/lib/pq"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) CRMDatabase {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn, // 最后尝试原始DSN
	}

	var db *sql.DB
	var err error

	for i, strategy := range strategies {
		fmt.Printf("🔄 Trying connection strategy %d...\n", i+1)

		db, err = sql.Open("postgres", strategy)
		if err != nil {
			fmt.Printf("❌ Strategy %d failed to open: %v\n", i+1, err)
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		// 测试连接
		if err = db.Ping(); err != nil {
			fmt.Printf("❌ Strategy %d failed to ping: %v\n", i+1, err)
			db.Close()
			continue
		}

		fmt.Printf("✅ PostgreSQL connection established successfully with strategy %d\n", i+1)
		return &PostgresDatabase{db: db}
	}

	// 所有策略都失败了
	panic(fmt.Sprintf("Failed to connect to PostgreSQL with all strategies. Last error: %v", err))
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// likePattern ILIKE 模糊匹配模式
func likePattern(search string) string {
	return "%" + search + "%"
}

// ==================== 团队成员 ====================

// CreateTeamMember 创建团队成员
func (db *PostgresDatabase) CreateTeamMember(m *models.TeamMember) error {
	query := `
		INSERT INTO teams (id, customer_id, name, email, phone_number, image, role, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query,
		m.ID, m.CustomerID, m.Name, m.Email, m.PhoneNumber, m.Image, string(m.Role), m.Password, m.IsActive,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create team member: %w", err)
	}
	return nil
}

const teamMemberColumns = `
	id, COALESCE(customer_id,''), name, email, COALESCE(phone_number,''),
	COALESCE(image,''), role, COALESCE(password_hash,''), is_active, created_at, updated_at
`

func scanTeamMember(row interface{ Scan(...interface{}) error }) (*models.TeamMember, error) {
	var m models.TeamMember
	var role string
	err := row.Scan(
		&m.ID, &m.CustomerID, &m.Name, &m.Email, &m.PhoneNumber,
		&m.Image, &role, &m.Password, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Role = models.Role(role)
	return &m, nil
}

// GetTeamMemberByID 根据ID获取团队成员
func (db *PostgresDatabase) GetTeamMemberByID(id string) (*models.TeamMember, error) {
	query := `SELECT ` + teamMemberColumns + ` FROM teams WHERE id = $1`
	m, err := scanTeamMember(db.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team member: %w", err)
	}
	return m, nil
}

// GetTeamMemberByEmail 根据邮箱获取团队成员
func (db *PostgresDatabase) GetTeamMemberByEmail(email string) (*models.TeamMember, error) {
	query := `SELECT ` + teamMemberColumns + ` FROM teams WHERE email = $1`
	m, err := scanTeamMember(db.db.QueryRow(query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team member by email: %w", err)
	}
	return m, nil
}

// GetTeamMemberByPhone 根据手机号获取团队成员
func (db *PostgresDatabase) GetTeamMemberByPhone(phone string) (*models.TeamMember, error) {
	query := `SELECT ` + teamMemberColumns + ` FROM teams WHERE phone_number = $1`
	m, err := scanTeamMember(db.db.QueryRow(query, phone))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team member by phone: %w", err)
	}
	return m, nil
}

// UpdateTeamMember 更新团队成员
func (db *PostgresDatabase) UpdateTeamMember(m *models.TeamMember) error {
	query := `
		UPDATE teams
		SET name = $1, email = $2, phone_number = $3, image = $4, role = $5,
		    password_hash = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
	`
	result, err := db.db.Exec(query,
		m.Name, m.Email, m.PhoneNumber, m.Image, string(m.Role), m.Password, m.IsActive, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update team member: %w", err)
	}
	return checkAffected(result)
}

// DeleteTeamMember 删除团队成员
func (db *PostgresDatabase) DeleteTeamMember(id string) error {
	result, err := db.db.Exec(`DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team member: %w", err)
	}
	return checkAffected(result)
}

// ListTeamMembers 分页查询团队成员
func (db *PostgresDatabase) ListTeamMembers(f SearchFilter, limit, offset int) ([]models.TeamMember, error) {
	query := `SELECT ` + teamMemberColumns + ` FROM teams WHERE ($1 = '' OR name ILIKE $2 OR email ILIKE $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := db.db.Query(query, f.Search, likePattern(f.Search), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	members := []models.TeamMember{}
	for rows.Next() {
		m, err := scanTeamMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// CountTeamMembers 统计团队成员总数
func (db *PostgresDatabase) CountTeamMembers(f SearchFilter) (int, error) {
	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(*) FROM teams WHERE ($1 = '' OR name ILIKE $2 OR email ILIKE $2)`,
		f.Search, likePattern(f.Search),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count team members: %w", err)
	}
	return count, nil
}

// ==================== 线索 ====================

// CreateLead 创建线索
func (db *PostgresDatabase) CreateLead(lead *models.Lead) error {
	query := `
		INSERT INTO leads (id, name, email, phone, source, status, value, notes, company_id, team_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Source, lead.Status,
		lead.Value, lead.Notes, lead.CompanyID, lead.TeamID,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

const leadColumns = `
	id, name, email, COALESCE(phone,''), COALESCE(source,''), status, value,
	COALESCE(notes,''), COALESCE(company_id,''), COALESCE(team_id,''), created_at, updated_at
`

func scanLead(row interface{ Scan(...interface{}) error }) (*models.Lead, error) {
	var l models.Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Source, &l.Status, &l.Value,
		&l.Notes, &l.CompanyID, &l.TeamID, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetLead 根据ID获取线索
func (db *PostgresDatabase) GetLead(id string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	l, err := scanLead(db.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return l, nil
}

// UpdateLead 更新线索
func (db *PostgresDatabase) UpdateLead(lead *models.Lead) error {
	query := `
		UPDATE leads
		SET name = $1, email = $2, phone = $3, source = $4, status = $5, value = $6,
		    notes = $7, company_id = $8, team_id = $9, updated_at = NOW()
		WHERE id = $10
	`
	result, err := db.db.Exec(query,
		lead.Name, lead.Email, lead.Phone, lead.Source, lead.Status, lead.Value,
		lead.Notes, lead.CompanyID, lead.TeamID, lead.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	return checkAffected(result)
}

// DeleteLead 删除线索
func (db *PostgresDatabase) DeleteLead(id string) error {
	result, err := db.db.Exec(`DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return checkAffected(result)
}

// ListLeads 分页查询线索
func (db *PostgresDatabase) ListLeads(f LeadFilter, limit, offset int) ([]models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE ($1 = '' OR name ILIKE $2 OR email ILIKE $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4 = '' OR team_id = $4)
		ORDER BY created_at DESC LIMIT $5 OFFSET $6`
	rows, err := db.db.Query(query, f.Search, likePattern(f.Search), f.Status, f.TeamID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

// CountLeads 统计线索总数
func (db *PostgresDatabase) CountLeads(f LeadFilter) (int, error) {
	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(*) FROM leads
		 WHERE ($1 = '' OR name ILIKE $2 OR email ILIKE $2)
		   AND ($3 = '' OR status = $3)
		   AND ($4 = '' OR team_id = $4)`,
		f.Search, likePattern(f.Search), f.Status, f.TeamID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return count, nil
}

// CountLeadsByStatus 按状态统计线索
func (db *PostgresDatabase) CountLeadsByStatus(status string) (int, error) {
	var count int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM leads WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads by status: %w", err)
	}
	return count, nil
}

// CountLeadsCreatedBetween 统计指定时间段内创建的线索
func (db *PostgresDatabase) CountLeadsCreatedBetween(status string, from, to time.Time) (int, error) {
	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(*) FROM leads WHERE ($1 = '' OR status = $1) AND created_at BETWEEN $2 AND $3`,
		status, from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads created between: %w", err)
	}
	return count, nil
}

// GroupLeadsBySource 按来源分组统计线索
func (db *PostgresDatabase) GroupLeadsBySource() (map[string]int, error) {
	rows, err := db.db.Query(`SELECT COALESCE(source,''), COUNT(*) FROM leads GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to group leads by source: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan lead source: %w", err)
		}
		counts[source] = count
	}
	return counts, rows.Err()
}

// ==================== 交易 ====================

// CreateDeal 创建交易
func (db *PostgresDatabase) CreateDeal(deal *models.Deal) error {
	historyJSON, err := json.Marshal(deal.StageHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal stage history: %w", err)
	}

	query := `
		INSERT INTO deals (id, title, value, stage, probability, expected_close_date, notes,
		                   team_id, contact_id, assign_by, stage_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = db.db.QueryRow(query,
		deal.ID, deal.Title, deal.Value, deal.Stage, deal.Probability,
		deal.ExpectedCloseDate, deal.Notes, deal.TeamID, deal.ContactID,
		deal.AssignBy, historyJSON,
	).Scan(&deal.CreatedAt, &deal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

const dealColumns = `
	id, title, value, stage, probability, COALESCE(expected_close_date,''),
	COALESCE(notes,''), COALESCE(team_id,''), COALESCE(contact_id,''),
	COALESCE(assign_by,''), stage_history, created_at, updated_at
`

func scanDeal(row interface{ Scan(...interface{}) error }) (*models.Deal, error) {
	var d models.Deal
	var historyJSON []byte
	err := row.Scan(
		&d.ID, &d.Title, &d.Value, &d.Stage, &d.Probability, &d.ExpectedCloseDate,
		&d.Notes, &d.TeamID, &d.ContactID, &d.AssignBy, &historyJSON, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &d.StageHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stage history: %w", err)
		}
	}
	if d.StageHistory == nil {
		d.StageHistory = []models.StageHistory{}
	}
	return &d, nil
}

// GetDeal 根据ID获取交易
func (db *PostgresDatabase) GetDeal(id string) (*models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`
	d, err := scanDeal(db.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	return d, nil
}

// UpdateDeal 更新交易（stage_history 整体覆盖写回）
func (db *PostgresDatabase) UpdateDeal(deal *models.Deal) error {
	historyJSON, err := json.Marshal(deal.StageHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal stage history: %w", err)
	}

	query := `
		UPDATE deals
		SET title = $1, value = $2, stage = $3, probability = $4, expected_close_date = $5,
		    notes = $6, team_id = $7, contact_id = $8, assign_by = $9, stage_history = $10,
		    updated_at = NOW()
		WHERE id = $11
	`
	result, err := db.db.Exec(query,
		deal.Title, deal.Value, deal.Stage, deal.Probability, deal.ExpectedCloseDate,
		deal.Notes, deal.TeamID, deal.ContactID, deal.AssignBy, historyJSON, deal.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	return checkAffected(result)
}

// DeleteDeal 删除交易
func (db *PostgresDatabase) DeleteDeal(id string) error {
	result, err := db.db.Exec(`DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	return checkAffected(result)
}

// ListDeals 分页查询交易
func (db *PostgresDatabase) ListDeals(f SearchFilter, limit, offset int) ([]models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE ($1 = '' OR title ILIKE $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := db.db.Query(query, f.Search, likePattern(f.Search), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, *d)
	}
	return deals, rows.Err()
}

// CountDeals 统计交易总数
func (db *PostgresDatabase) CountDeals(f SearchFilter) (int, error) {
	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(*) FROM deals WHERE ($1 = '' OR title ILIKE $2)`,
		f.Search, likePattern(f.Search),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count deals: %w", err)
	}
	return count, nil
}

// CountDealsByStage 按阶段统计交易
func (db *PostgresDatabase) CountDealsByStage(stage string) (int, error) {
	var count int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM deals WHERE stage = $1`, stage).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count deals by stage: %w", err)
	}
	return count, nil
}

// CountActiveDealsBetween 统计指定时间段内创建的未关闭交易
func (db *PostgresDatabase) CountActiveDealsBetween(from, to time.Time) (int, error) {
	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(*) FROM deals
		 WHERE stage NOT IN ('closed_won', 'closed_lost') AND created_at BETWEEN $1 AND $2`,
		from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active deals: %w", err)
	}
	return count, nil
}

// SumWonDealValueBetween 统计指定时间段内创建且已赢单的总金额
func (db *PostgresDatabase) SumWonDealValueBetween(from, to time.Time) (float64, error) {
	var total float64
	err := db.db.QueryRow(
		`SELECT COALESCE(SUM(value), 0) FROM deals
		 WHERE stage = 'closed_won' AND created_at BETWEEN $1 AND $2`,
		from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum won deal value: %w", err)
	}
	return total, nil
}

// RevenueByMonth 按月聚合指定年份的交易金额与数量
func (db *PostgresDatabase) RevenueByMonth(year int) (map[int]reporting.MonthTotal, error) {
	query := `
		SELECT EXTRACT(MONTH FROM created_at)::int, COALESCE(SUM(value), 0), COUNT(*)
		FROM deals
		WHERE EXTRACT(YEAR FROM created_at) = $1
		GROUP BY 1
	`
	rows, err := db.db.Query(query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue by month: %w", err)
	}
	defer rows.Close()

	totals := map[int]reporting.MonthTotal{}
	for rows.Next() {
		var month, deals int
		var revenue float64
		if err := rows.Scan(&month, &revenue, &deals); err != nil {
			return nil, fmt.Errorf("failed to scan monthly revenue: %w", err)
		}
		totals[month] = reporting.MonthTotal{Revenue: revenue, Deals: deals}
	}
	return totals, rows.Err()
}

// ==================== 任务 ====================

// CreateTask 创建任务
func (db *PostgresDatabase) CreateTask(task *models.Task) error {
	query := `
		INSERT INTO tasks (id, title, description, status, type, priority, due_date, assign_to, assign_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query,
		task.ID, task.Title, task.Description, task.Status, task.Type,
		task.Priority, task.DueDate, task.AssignTo, task.AssignBy,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

const taskColumns = `
	id, title, COALESCE(description,''), status, COALESCE(type,''), priority,
	due_date, COALESCE(assign_to,''), COALESCE(assign_by,''), created_at, updated_at
`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var t models.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Type, &t.Priority,
		&t.DueDate, &t.AssignTo, &t.AssignBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask 根据ID获取任务
func (db *PostgresDatabase) GetTask(id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	t, err := scanTask(db.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// UpdateTask 更新任务
func (db *PostgresDatabase) UpdateTask(task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, type = $4, priority = $5,
		    due_date = $6, assign_to = $7, assign_by = $8, updated_at = NOW()
		WHERE id = $9
	`
	result, err := db.db.Exec(query,
		task.Title, task.Description, task.Status, task.Type, task.Priority,
		task.DueDate, task.AssignTo, task.AssignBy, task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return checkAffected(result)
}

// DeleteTask 删除任务
func (db *PostgresDatabase) DeleteTask(id string) error {
	result, err := db.db.Exec(`DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return checkAffected(result)
}

// ListTasks 分页查询任务
func (db *PostgresDatabase) ListTasks(f TaskFilter, limit, offset int) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE ($1 = '' OR title ILIKE $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4 = '' OR assign_to = $4)
		  AND ($5::timestamptz IS NULL OR due_date BETWEEN $5 AND $6)
		ORDER BY due_date ASC LIMIT $7 OFFSET $8`
	rows, err := db.db.Query(query,
		f.Search, likePattern(f.Search), f.Status, f.AssignTo,
		nullableTime(f.DueFrom), nullableTime(f.DueTo), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// CountTasks 统计任务总数
func (db *PostgresDatabase) CountTasks(f TaskFilter) (int, error) {
	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(*) FROM tasks
		 WHERE ($1 = '' OR title ILIKE $2)
		   AND ($3 = '' OR status = $3)
		   AND ($4 = '' OR assign_to = $4)
		   AND ($5::timestamptz IS NULL OR due_date BETWEEN $5 AND $6)`,
		f.Search, likePattern(f.Search), f.Status, f.AssignTo,
		nullableTime(f.DueFrom), nullableTime(f.DueTo),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// CountTasksByStatus 按状态统计任务
func (db *PostgresDatabase) CountTasksByStatus(status string) (int, error) {
	var count int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	return count, nil
}

// CountTasksDueBetween 统计到期日落在指定时间段内的任务
func (db *PostgresDatabase) CountTasksDueBetween(from, to time.Time) (int, error) {
	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(*) FROM tasks WHERE due_date BETWEEN $1 AND $2`,
		from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks due between: %w", err)
	}
	return count, nil
}

// MarkOverdueTasks 将到期未完成的任务标记为 overdue
func (db *PostgresDatabase) MarkOverdueTasks(now time.Time) (int64, error) {
	result, err := db.db.Exec(
		`UPDATE tasks SET status = 'overdue', updated_at = NOW()
		 WHERE due_date < $1 AND status IN ('pending', 'in_progress')`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue tasks: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// ==================== 联系人 ====================

// CreateContact 创建联系人
func (db *PostgresDatabase) CreateContact(contact *models.Contact) error {
	query := `
		INSERT INTO contacts (id, name, email, phone, position, company_id, last_contact, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query,
		contact.ID, contact.Name, contact.Email, contact.Phone,
		contact.Position, contact.CompanyID, contact.LastContact,
	).Scan(&contact.CreatedAt, &contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

const contactColumns = `
	id, name, email, COALESCE(phone,''), COALESCE(position,''),
	COALESCE(company_id,''), last_contact, created_at, updated_at
`

func scanContact(row interface{ Scan(...interface{}) error }) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Position,
		&c.CompanyID, &c.LastContact, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContact 根据ID获取联系人
func (db *PostgresDatabase) GetContact(id string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	c, err := scanContact(db.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

// UpdateContact 更新联系人
func (db *PostgresDatabase) UpdateContact(contact *models.Contact) error {
	query := `
		UPDATE contacts
		SET name = $1, email = $2, phone = $3, position = $4, company_id = $5,
		    last_contact = $6, updated_at = NOW()
		WHERE id = $7
	`
	result, err := db.db.Exec(query,
		contact.Name, contact.Email, contact.Phone, contact.Position,
		contact.CompanyID, contact.LastContact, contact.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return checkAffected(result)
}

// DeleteContact 删除联系人
func (db *PostgresDatabase) DeleteContact(id string) error {
	result, err := db.db.Exec(`DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return checkAffected(result)
}

// ListContacts 分页查询联系人
func (db *PostgresDatabase) ListContacts(f ContactFilter, limit, offset int) ([]models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE ($1 = '' OR name ILIKE $2 OR email ILIKE $2)
		  AND ($3 = '' OR company_id = $3)
		ORDER BY created_at DESC LIMIT $4 OFFSET $5`
	rows, err := db.db.Query(query, f.Search, likePattern(f.Search), f.CompanyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// CountContacts 统计联系人总数
func (db *PostgresDatabase) CountContacts(f ContactFilter) (int, error) {
	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(*) FROM contacts
		 WHERE ($1 = '' OR name ILIKE $2 OR email ILIKE $2)
		   AND ($3 = '' OR company_id = $3)`,
		f.Search, likePattern(f.Search), f.CompanyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

// CountDistinctContactCompanies 统计联系人覆盖的公司数
func (db *PostgresDatabase) CountDistinctContactCompanies() (int, error) {
	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(DISTINCT company_id) FROM contacts WHERE company_id IS NOT NULL AND company_id <> ''`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct contact companies: %w", err)
	}
	return count, nil
}

// ==================== 公司 ====================

// CreateCompany 创建公司
func (db *PostgresDatabase) CreateCompany(company *models.Company) error {
	query := `
		INSERT INTO companies (id, company_name, industry, company_size, revenue, website,
		                       address, city, state, pin_code, country, contact_country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query,
		company.ID, company.CompanyName, company.Industry, company.CompanySize,
		company.Revenue, company.Website, company.Address, company.City,
		company.State, company.PinCode, company.Country, company.ContactCountry,
	).Scan(&company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

const companyColumns = `
	id, company_name, COALESCE(industry,''), COALESCE(company_size,''), COALESCE(revenue,''),
	COALESCE(website,''), COALESCE(address,''), COALESCE(city,''), COALESCE(state,''),
	COALESCE(pin_code,''), COALESCE(country,''), COALESCE(contact_country,''), created_at, updated_at
`

func scanCompany(row interface{ Scan(...interface{}) error }) (*models.Company, error) {
	var c models.Company
	err := row.Scan(
		&c.ID, &c.CompanyName, &c.Industry, &c.CompanySize, &c.Revenue,
		&c.Website, &c.Address, &c.City, &c.State,
		&c.PinCode, &c.Country, &c.ContactCountry, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCompany 根据ID获取公司
func (db *PostgresDatabase) GetCompany(id string) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	c, err := scanCompany(db.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// UpdateCompany 更新公司
func (db *PostgresDatabase) UpdateCompany(company *models.Company) error {
	query := `
		UPDATE companies
		SET company_name = $1, industry = $2, company_size = $3, revenue = $4, website = $5,
		    address = $6, city = $7, state = $8, pin_code = $9, country = $10,
		    contact_country = $11, updated_at = NOW()
		WHERE id = $12
	`
	result, err := db.db.Exec(query,
		company.CompanyName, company.Industry, company.CompanySize, company.Revenue,
		company.Website, company.Address, company.City, company.State,
		company.PinCode, company.Country, company.ContactCountry, company.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return checkAffected(result)
}

// DeleteCompany 删除公司
func (db *PostgresDatabase) DeleteCompany(id string) error {
	result, err := db.db.Exec(`DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	return checkAffected(result)
}

// ListCompanies 分页查询公司
func (db *PostgresDatabase) ListCompanies(f SearchFilter, limit, offset int) ([]models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE ($1 = '' OR company_name ILIKE $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := db.db.Query(query, f.Search, likePattern(f.Search), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

// CountCompanies 统计公司总数
func (db *PostgresDatabase) CountCompanies(f SearchFilter) (int, error) {
	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(*) FROM companies WHERE ($1 = '' OR company_name ILIKE $2)`,
		f.Search, likePattern(f.Search),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}
	return count, nil
}

// CountContactsByCompany 统计某公司下的联系人数
func (db *PostgresDatabase) CountContactsByCompany(companyID string) (int, error) {
	var count int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM contacts WHERE company_id = $1`, companyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts by company: %w", err)
	}
	return count, nil
}

// ==================== 邮件模板 ====================

// CreateMailTemplate 创建邮件模板
func (db *PostgresDatabase) CreateMailTemplate(t *models.MailTemplate) error {
	query := `
		INSERT INTO mail_templates (id, subject, template, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query, t.ID, t.Subject, t.Template, t.Type).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create mail template: %w", err)
	}
	return nil
}

// GetMailTemplateByType 按类型获取邮件模板
func (db *PostgresDatabase) GetMailTemplateByType(templateType string) (*models.MailTemplate, error) {
	query := `
		SELECT id, subject, template, type, created_at, updated_at
		FROM mail_templates
		WHERE type = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var t models.MailTemplate
	err := db.db.QueryRow(query, templateType).Scan(
		&t.ID, &t.Subject, &t.Template, &t.Type, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mail template: %w", err)
	}
	return &t, nil
}

// ==================== 计数器 ====================

// NextSequence 原子递增并返回指定键的序号
func (db *PostgresDatabase) NextSequence(key string) (int64, error) {
	query := `
		INSERT INTO counters (key, seq) VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq
	`
	var seq int64
	if err := db.db.QueryRow(query, key).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", key, err)
	}
	return seq, nil
}

// ==================== 通用 ====================

// checkAffected 将零行更新映射为 ErrNotFound
func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// nullableTime 零值时间作为 SQL NULL 传参
func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck() error {
	if err := db.db.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close 关闭数据库连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
