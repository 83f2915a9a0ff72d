package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"crm-backend-refactor/pkg/database"
)

// Scheduler 后台定时任务
type Scheduler struct {
	db   database.CRMDatabase
	cron *cron.Cron
}

// NewScheduler 创建调度器
func NewScheduler(db database.CRMDatabase) *Scheduler {
	return &Scheduler{
		db:   db,
		cron: cron.New(),
	}
}

// Start registers the daily jobs and runs the overdue sweep once immediately
// so a restarted process does not wait until midnight to catch up.
func (s *Scheduler) Start() error {
	// 每天零点扫描到期任务
	if _, err := s.cron.AddFunc("0 0 * * *", s.sweepOverdueTasks); err != nil {
		return fmt.Errorf("failed to register overdue sweep: %w", err)
	}

	s.cron.Start()
	fmt.Printf("⏰ Scheduler started\n")

	s.sweepOverdueTasks()
	return nil
}

// Stop 停止调度器并等待运行中的任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	fmt.Printf("⏰ Scheduler stopped\n")
}

// sweepOverdueTasks 将到期未完成的任务置为 overdue
func (s *Scheduler) sweepOverdueTasks() {
	affected, err := s.db.MarkOverdueTasks(time.Now())
	if err != nil {
		fmt.Printf("❌ Overdue task sweep failed: %v\n", err)
		return
	}
	if affected > 0 {
		fmt.Printf("✅ Marked %d task(s) as overdue\n", affected)
	}
}
