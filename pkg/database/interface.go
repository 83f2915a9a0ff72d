package database

import (
	"errors"
	"fmt"
	"time"

	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/reporting"
)

// ErrNotFound 记录不存在时返回的哨兵错误
var ErrNotFound = errors.New("record not found")

// SearchFilter 通用列表过滤条件
type SearchFilter struct {
	Search string
}

// LeadFilter 线索列表过滤条件
// TeamID 非空时按负责成员过滤（非管理员只能看到自己的线索）
type LeadFilter struct {
	Search string
	Status string
	TeamID string
}

// TaskFilter 任务列表过滤条件
type TaskFilter struct {
	Search   string
	Status   string
	AssignTo string
	DueFrom  time.Time
	DueTo    time.Time
}

// ContactFilter 联系人列表过滤条件
type ContactFilter struct {
	Search    string
	CompanyID string
}

// CRMDatabase 定义数据库访问接口
type CRMDatabase interface {
	// 团队成员
	CreateTeamMember(m *models.TeamMember) error
	GetTeamMemberByID(id string) (*models.TeamMember, error)
	GetTeamMemberByEmail(email string) (*models.TeamMember, error)
	GetTeamMemberByPhone(phone string) (*models.TeamMember, error)
	UpdateTeamMember(m *models.TeamMember) error
	DeleteTeamMember(id string) error
	ListTeamMembers(f SearchFilter, limit, offset int) ([]models.TeamMember, error)
	CountTeamMembers(f SearchFilter) (int, error)

	// 线索
	CreateLead(lead *models.Lead) error
	GetLead(id string) (*models.Lead, error)
	UpdateLead(lead *models.Lead) error
	DeleteLead(id string) error
	ListLeads(f LeadFilter, limit, offset int) ([]models.Lead, error)
	CountLeads(f LeadFilter) (int, error)
	CountLeadsByStatus(status string) (int, error)
	// CountLeadsCreatedBetween counts leads created inside [from, to];
	// status "" matches any status.
	CountLeadsCreatedBetween(status string, from, to time.Time) (int, error)
	GroupLeadsBySource() (map[string]int, error)

	// 交易
	CreateDeal(deal *models.Deal) error
	GetDeal(id string) (*models.Deal, error)
	UpdateDeal(deal *models.Deal) error
	DeleteDeal(id string) error
	ListDeals(f SearchFilter, limit, offset int) ([]models.Deal, error)
	CountDeals(f SearchFilter) (int, error)
	CountDealsByStage(stage string) (int, error)
	// CountActiveDealsBetween counts deals created inside [from, to] that are
	// not yet closed (won or lost).
	CountActiveDealsBetween(from, to time.Time) (int, error)
	SumWonDealValueBetween(from, to time.Time) (float64, error)
	// RevenueByMonth sums deal value and counts deals per calendar month of
	// the given year, keyed by month number (1-12).
	RevenueByMonth(year int) (map[int]reporting.MonthTotal, error)

	// 任务
	CreateTask(task *models.Task) error
	GetTask(id string) (*models.Task, error)
	UpdateTask(task *models.Task) error
	DeleteTask(id string) error
	ListTasks(f TaskFilter, limit, offset int) ([]models.Task, error)
	CountTasks(f TaskFilter) (int, error)
	CountTasksByStatus(status string) (int, error)
	CountTasksDueBetween(from, to time.Time) (int, error)
	// MarkOverdueTasks flips pending/in_progress tasks whose due date has
	// passed to overdue and returns how many rows changed.
	MarkOverdueTasks(now time.Time) (int64, error)

	// 联系人
	CreateContact(contact *models.Contact) error
	GetContact(id string) (*models.Contact, error)
	UpdateContact(contact *models.Contact) error
	DeleteContact(id string) error
	ListContacts(f ContactFilter, limit, offset int) ([]models.Contact, error)
	CountContacts(f ContactFilter) (int, error)
	CountDistinctContactCompanies() (int, error)

	// 公司
	CreateCompany(company *models.Company) error
	GetCompany(id string) (*models.Company, error)
	UpdateCompany(company *models.Company) error
	DeleteCompany(id string) error
	ListCompanies(f SearchFilter, limit, offset int) ([]models.Company, error)
	CountCompanies(f SearchFilter) (int, error)
	CountContactsByCompany(companyID string) (int, error)

	// 邮件模板
	CreateMailTemplate(t *models.MailTemplate) error
	GetMailTemplateByType(templateType string) (*models.MailTemplate, error)

	// 计数器（customerID 序号）
	NextSequence(key string) (int64, error)

	// 健康检查
	HealthCheck() error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	UseLocalDB  bool
	PostgresDSN string
	Debug       bool
}

// NewDatabase 根据配置选择数据库实现
func NewDatabase(config DatabaseConfig) CRMDatabase {
	if config.PostgresDSN != "" && !config.UseLocalDB {
		fmt.Printf("🗄️  Using PostgreSQL database\n")
		return NewPostgresDatabase(config.PostgresDSN)
	}

	fmt.Printf("🏠  Using in-memory database\n")
	return NewMemoryDatabase()
}
