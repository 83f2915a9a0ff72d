package database

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/reporting"
)

// MemoryDatabase 内存数据库实现（开发与测试用）
type MemoryDatabase struct {
	mu        sync.RWMutex
	teams     map[string]*models.TeamMember
	leads     map[string]*models.Lead
	deals     map[string]*models.Deal
	tasks     map[string]*models.Task
	contacts  map[string]*models.Contact
	companies map[string]*models.Company
	templates map[string]*models.MailTemplate // keyed by type
	counters  map[string]int64
}

// NewMemoryDatabase 创建内存数据库实例
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		teams:     make(map[string]*models.TeamMember),
		leads:     make(map[string]*models.Lead),
		deals:     make(map[string]*models.Deal),
		tasks:     make(map[string]*models.Task),
		contacts:  make(map[string]*models.Contact),
		companies: make(map[string]*models.Company),
		templates: make(map[string]*models.MailTemplate),
		counters:  make(map[string]int64),
	}
}

// matchSearch 大小写不敏感的子串匹配，search 为空时恒为真
func matchSearch(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// paginate slices a result set that is already sorted.
func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// cloneDeal 深拷贝交易，避免调用方修改内部状态
func cloneDeal(d *models.Deal) *models.Deal {
	cp := *d
	cp.StageHistory = append([]models.StageHistory{}, d.StageHistory...)
	return &cp
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// ==================== 团队成员 ====================

func (db *MemoryDatabase) CreateTeamMember(m *models.TeamMember) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.teams[m.ID]; exists {
		return fmt.Errorf("team member already exists: %s", m.ID)
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	cp := *m
	db.teams[m.ID] = &cp
	return nil
}

func (db *MemoryDatabase) GetTeamMemberByID(id string) (*models.TeamMember, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, ok := db.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (db *MemoryDatabase) GetTeamMemberByEmail(email string) (*models.TeamMember, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, m := range db.teams {
		if strings.EqualFold(m.Email, email) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (db *MemoryDatabase) GetTeamMemberByPhone(phone string) (*models.TeamMember, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, m := range db.teams {
		if m.PhoneNumber == phone {
			cp := *m
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (db *MemoryDatabase) UpdateTeamMember(m *models.TeamMember) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.teams[m.ID]
	if !ok {
		return ErrNotFound
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now()
	cp := *m
	db.teams[m.ID] = &cp
	return nil
}

func (db *MemoryDatabase) DeleteTeamMember(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.teams[id]; !ok {
		return ErrNotFound
	}
	delete(db.teams, id)
	return nil
}

func (db *MemoryDatabase) filterTeamMembers(f SearchFilter) []models.TeamMember {
	matched := []models.TeamMember{}
	for _, m := range db.teams {
		if matchSearch(f.Search, m.Name, m.Email) {
			matched = append(matched, *m)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (db *MemoryDatabase) ListTeamMembers(f SearchFilter, limit, offset int) ([]models.TeamMember, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return paginate(db.filterTeamMembers(f), limit, offset), nil
}

func (db *MemoryDatabase) CountTeamMembers(f SearchFilter) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.filterTeamMembers(f)), nil
}

// ==================== 线索 ====================

func (db *MemoryDatabase) CreateLead(lead *models.Lead) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.leads[lead.ID]; exists {
		return fmt.Errorf("lead already exists: %s", lead.ID)
	}
	now := time.Now()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	cp := *lead
	db.leads[lead.ID] = &cp
	return nil
}

func (db *MemoryDatabase) GetLead(id string) (*models.Lead, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	l, ok := db.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (db *MemoryDatabase) UpdateLead(lead *models.Lead) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.leads[lead.ID]
	if !ok {
		return ErrNotFound
	}
	lead.CreatedAt = existing.CreatedAt
	lead.UpdatedAt = time.Now()
	cp := *lead
	db.leads[lead.ID] = &cp
	return nil
}

func (db *MemoryDatabase) DeleteLead(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.leads[id]; !ok {
		return ErrNotFound
	}
	delete(db.leads, id)
	return nil
}

func (db *MemoryDatabase) filterLeads(f LeadFilter) []models.Lead {
	matched := []models.Lead{}
	for _, l := range db.leads {
		if !matchSearch(f.Search, l.Name, l.Email) {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.TeamID != "" && l.TeamID != f.TeamID {
			continue
		}
		matched = append(matched, *l)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (db *MemoryDatabase) ListLeads(f LeadFilter, limit, offset int) ([]models.Lead, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return paginate(db.filterLeads(f), limit, offset), nil
}

func (db *MemoryDatabase) CountLeads(f LeadFilter) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.filterLeads(f)), nil
}

func (db *MemoryDatabase) CountLeadsByStatus(status string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, l := range db.leads {
		if l.Status == status {
			count++
		}
	}
	return count, nil
}

func (db *MemoryDatabase) CountLeadsCreatedBetween(status string, from, to time.Time) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, l := range db.leads {
		if status != "" && l.Status != status {
			continue
		}
		if within(l.CreatedAt, from, to) {
			count++
		}
	}
	return count, nil
}

func (db *MemoryDatabase) GroupLeadsBySource() (map[string]int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	counts := map[string]int{}
	for _, l := range db.leads {
		counts[l.Source]++
	}
	return counts, nil
}

// ==================== 交易 ====================

func (db *MemoryDatabase) CreateDeal(deal *models.Deal) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.deals[deal.ID]; exists {
		return fmt.Errorf("deal already exists: %s", deal.ID)
	}
	now := time.Now()
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = now
	}
	deal.UpdatedAt = now
	db.deals[deal.ID] = cloneDeal(deal)
	return nil
}

func (db *MemoryDatabase) GetDeal(id string) (*models.Deal, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	d, ok := db.deals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDeal(d), nil
}

func (db *MemoryDatabase) UpdateDeal(deal *models.Deal) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.deals[deal.ID]
	if !ok {
		return ErrNotFound
	}
	deal.CreatedAt = existing.CreatedAt
	deal.UpdatedAt = time.Now()
	db.deals[deal.ID] = cloneDeal(deal)
	return nil
}

func (db *MemoryDatabase) DeleteDeal(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.deals[id]; !ok {
		return ErrNotFound
	}
	delete(db.deals, id)
	return nil
}

func (db *MemoryDatabase) filterDeals(f SearchFilter) []models.Deal {
	matched := []models.Deal{}
	for _, d := range db.deals {
		if matchSearch(f.Search, d.Title) {
			matched = append(matched, *cloneDeal(d))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (db *MemoryDatabase) ListDeals(f SearchFilter, limit, offset int) ([]models.Deal, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return paginate(db.filterDeals(f), limit, offset), nil
}

func (db *MemoryDatabase) CountDeals(f SearchFilter) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.filterDeals(f)), nil
}

func (db *MemoryDatabase) CountDealsByStage(stage string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, d := range db.deals {
		if d.Stage == stage {
			count++
		}
	}
	return count, nil
}

func (db *MemoryDatabase) CountActiveDealsBetween(from, to time.Time) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, d := range db.deals {
		if d.Stage == "closed_won" || d.Stage == "closed_lost" {
			continue
		}
		if within(d.CreatedAt, from, to) {
			count++
		}
	}
	return count, nil
}

func (db *MemoryDatabase) SumWonDealValueBetween(from, to time.Time) (float64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	total := 0.0
	for _, d := range db.deals {
		if d.Stage == "closed_won" && within(d.CreatedAt, from, to) {
			total += d.Value
		}
	}
	return total, nil
}

func (db *MemoryDatabase) RevenueByMonth(year int) (map[int]reporting.MonthTotal, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	totals := map[int]reporting.MonthTotal{}
	for _, d := range db.deals {
		if d.CreatedAt.Year() != year {
			continue
		}
		month := int(d.CreatedAt.Month())
		t := totals[month]
		t.Revenue += d.Value
		t.Deals++
		totals[month] = t
	}
	return totals, nil
}

// ==================== 任务 ====================

func (db *MemoryDatabase) CreateTask(task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tasks[task.ID]; exists {
		return fmt.Errorf("task already exists: %s", task.ID)
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	cp := *task
	db.tasks[task.ID] = &cp
	return nil
}

func (db *MemoryDatabase) GetTask(id string) (*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (db *MemoryDatabase) UpdateTask(task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.tasks[task.ID]
	if !ok {
		return ErrNotFound
	}
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = time.Now()
	cp := *task
	db.tasks[task.ID] = &cp
	return nil
}

func (db *MemoryDatabase) DeleteTask(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(db.tasks, id)
	return nil
}

func (db *MemoryDatabase) filterTasks(f TaskFilter) []models.Task {
	matched := []models.Task{}
	for _, t := range db.tasks {
		if !matchSearch(f.Search, t.Title) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.AssignTo != "" && t.AssignTo != f.AssignTo {
			continue
		}
		if !f.DueFrom.IsZero() && !within(t.DueDate, f.DueFrom, f.DueTo) {
			continue
		}
		matched = append(matched, *t)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].DueDate.Before(matched[j].DueDate)
	})
	return matched
}

func (db *MemoryDatabase) ListTasks(f TaskFilter, limit, offset int) ([]models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return paginate(db.filterTasks(f), limit, offset), nil
}

func (db *MemoryDatabase) CountTasks(f TaskFilter) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.filterTasks(f)), nil
}

func (db *MemoryDatabase) CountTasksByStatus(status string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, t := range db.tasks {
		if t.Status == status {
			count++
		}
	}
	return count, nil
}

func (db *MemoryDatabase) CountTasksDueBetween(from, to time.Time) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, t := range db.tasks {
		if within(t.DueDate, from, to) {
			count++
		}
	}
	return count, nil
}

func (db *MemoryDatabase) MarkOverdueTasks(now time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var affected int64
	for _, t := range db.tasks {
		if t.DueDate.Before(now) && (t.Status == models.TaskStatusPending || t.Status == models.TaskStatusInProgress) {
			t.Status = models.TaskStatusOverdue
			t.UpdatedAt = now
			affected++
		}
	}
	return affected, nil
}

// ==================== 联系人 ====================

func (db *MemoryDatabase) CreateContact(contact *models.Contact) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.contacts[contact.ID]; exists {
		return fmt.Errorf("contact already exists: %s", contact.ID)
	}
	now := time.Now()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now
	cp := *contact
	db.contacts[contact.ID] = &cp
	return nil
}

func (db *MemoryDatabase) GetContact(id string) (*models.Contact, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	c, ok := db.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (db *MemoryDatabase) UpdateContact(contact *models.Contact) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.contacts[contact.ID]
	if !ok {
		return ErrNotFound
	}
	contact.CreatedAt = existing.CreatedAt
	contact.UpdatedAt = time.Now()
	cp := *contact
	db.contacts[contact.ID] = &cp
	return nil
}

func (db *MemoryDatabase) DeleteContact(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(db.contacts, id)
	return nil
}

func (db *MemoryDatabase) filterContacts(f ContactFilter) []models.Contact {
	matched := []models.Contact{}
	for _, c := range db.contacts {
		if !matchSearch(f.Search, c.Name, c.Email) {
			continue
		}
		if f.CompanyID != "" && c.CompanyID != f.CompanyID {
			continue
		}
		matched = append(matched, *c)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (db *MemoryDatabase) ListContacts(f ContactFilter, limit, offset int) ([]models.Contact, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return paginate(db.filterContacts(f), limit, offset), nil
}

func (db *MemoryDatabase) CountContacts(f ContactFilter) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.filterContacts(f)), nil
}

func (db *MemoryDatabase) CountDistinctContactCompanies() (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, c := range db.contacts {
		if c.CompanyID != "" {
			seen[c.CompanyID] = struct{}{}
		}
	}
	return len(seen), nil
}

// ==================== 公司 ====================

func (db *MemoryDatabase) CreateCompany(company *models.Company) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.companies[company.ID]; exists {
		return fmt.Errorf("company already exists: %s", company.ID)
	}
	now := time.Now()
	if company.CreatedAt.IsZero() {
		company.CreatedAt = now
	}
	company.UpdatedAt = now
	cp := *company
	db.companies[company.ID] = &cp
	return nil
}

func (db *MemoryDatabase) GetCompany(id string) (*models.Company, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	c, ok := db.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (db *MemoryDatabase) UpdateCompany(company *models.Company) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.companies[company.ID]
	if !ok {
		return ErrNotFound
	}
	company.CreatedAt = existing.CreatedAt
	company.UpdatedAt = time.Now()
	cp := *company
	db.companies[company.ID] = &cp
	return nil
}

func (db *MemoryDatabase) DeleteCompany(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.companies[id]; !ok {
		return ErrNotFound
	}
	delete(db.companies, id)
	return nil
}

func (db *MemoryDatabase) filterCompanies(f SearchFilter) []models.Company {
	matched := []models.Company{}
	for _, c := range db.companies {
		if matchSearch(f.Search, c.CompanyName) {
			matched = append(matched, *c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (db *MemoryDatabase) ListCompanies(f SearchFilter, limit, offset int) ([]models.Company, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return paginate(db.filterCompanies(f), limit, offset), nil
}

func (db *MemoryDatabase) CountCompanies(f SearchFilter) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.filterCompanies(f)), nil
}

func (db *MemoryDatabase) CountContactsByCompany(companyID string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, c := range db.contacts {
		if c.CompanyID == companyID {
			count++
		}
	}
	return count, nil
}

// ==================== 邮件模板 ====================

func (db *MemoryDatabase) CreateMailTemplate(t *models.MailTemplate) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	db.templates[t.Type] = &cp
	return nil
}

func (db *MemoryDatabase) GetMailTemplateByType(templateType string) (*models.MailTemplate, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.templates[templateType]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ==================== 计数器 ====================

func (db *MemoryDatabase) NextSequence(key string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.counters[key]++
	return db.counters[key], nil
}

// ==================== 通用 ====================

// HealthCheck 健康检查
func (db *MemoryDatabase) HealthCheck() error {
	return nil
}

// Close 关闭（内存实现无需释放资源）
func (db *MemoryDatabase) Close() error {
	return nil
}
