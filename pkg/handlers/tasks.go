package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/utils"
)

// TasksHandler 任务处理器
type TasksHandler struct {
	config *config.Config
	db     database.CRMDatabase
}

// NewTasksHandler 创建任务处理器
func NewTasksHandler(cfg *config.Config, db database.CRMDatabase) *TasksHandler {
	return &TasksHandler{config: cfg, db: db}
}

// Save 创建任务
func (h *TasksHandler) Save(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := utils.ParseJSONBody(r, &task); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	if task.Title == "" {
		utils.WriteBadRequest(w, "Title is required")
		return
	}

	task.ID = uuid.New().String()
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}

	if err := h.db.CreateTask(&task); err != nil {
		fmt.Printf("❌ Failed to create task: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteCreated(w, "Task created successfully", utils.Payload{"data": task})
}

// List 分页查询任务
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	var req models.ListRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	page, err := utils.ParsePage(req.PageOrDefault(), req.LimitOrDefault())
	if err != nil {
		utils.WriteBadRequest(w, "Invalid page or limit value")
		return
	}

	status := req.Status
	if status == "all" {
		status = ""
	}

	filter := database.TaskFilter{Search: req.Search, Status: status, AssignTo: req.AssignTo}
	if req.DueToday {
		filter.DueFrom, filter.DueTo = utils.DayBounds(time.Now())
	}

	total, err := h.db.CountTasks(filter)
	if err != nil {
		fmt.Printf("❌ Failed to count tasks: %v\n", err)
		utils.WriteServerError(w)
		return
	}
	tasks, err := h.db.ListTasks(filter, page.Limit, page.Offset())
	if err != nil {
		fmt.Printf("❌ Failed to list tasks: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	h.decorateTasks(tasks)

	utils.WriteOK(w, "Tasks fetched successfully", utils.Payload{
		"data":       tasks,
		"pagination": utils.NewPageInfo(total, page),
	})
}

// decorateTasks 装配执行人的展示字段
func (h *TasksHandler) decorateTasks(tasks []models.Task) {
	members := map[string]*models.TeamMember{}

	for i := range tasks {
		if id := tasks[i].AssignTo; id != "" {
			member, ok := members[id]
			if !ok {
				member, _ = h.db.GetTeamMemberByID(id)
				members[id] = member
			}
			if member != nil {
				tasks[i].AssignToName = member.Name
				tasks[i].AssignToImage = member.Image
			}
		}
	}
}

// Get 根据ID获取任务
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := h.db.GetTask(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Task not found")
			return
		}
		fmt.Printf("❌ Failed to get task %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	tasks := []models.Task{*task}
	h.decorateTasks(tasks)

	utils.WriteOK(w, "Task fetched successfully", utils.Payload{"data": tasks[0]})
}

// Update 更新任务
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.db.GetTask(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Task not found")
			return
		}
		fmt.Printf("❌ Failed to get task %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	var task models.Task
	if err := utils.ParseJSONBody(r, &task); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	task.ID = existing.ID
	task.CreatedAt = existing.CreatedAt
	if err := h.db.UpdateTask(&task); err != nil {
		fmt.Printf("❌ Failed to update task %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Task updated successfully", utils.Payload{"data": task})
}

// Delete 删除任务
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteTask(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Task not found")
			return
		}
		fmt.Printf("❌ Failed to delete task %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Task deleted successfully", nil)
}

// StatusUpdate 更新任务状态
func (h *TasksHandler) StatusUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.TaskStatusUpdateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.ID == "" || req.Status == "" {
		utils.WriteBadRequest(w, "Task ID and status are required")
		return
	}

	task, err := h.db.GetTask(req.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Task not found")
			return
		}
		fmt.Printf("❌ Failed to get task %s: %v\n", req.ID, err)
		utils.WriteServerError(w)
		return
	}

	task.Status = req.Status
	if err := h.db.UpdateTask(task); err != nil {
		fmt.Printf("❌ Failed to update task status %s: %v\n", req.ID, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Task status updated successfully", utils.Payload{"data": task})
}

// Dashboard 任务看板统计
func (h *TasksHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	statuses := map[string]string{
		"pendingTasks":    models.TaskStatusPending,
		"inProgressTasks": models.TaskStatusInProgress,
		"completedTasks":  models.TaskStatusCompleted,
		"overdueTasks":    models.TaskStatusOverdue,
	}

	data := utils.Payload{}
	total := 0
	for name, status := range statuses {
		count, err := h.db.CountTasksByStatus(status)
		if err != nil {
			fmt.Printf("❌ Failed to count tasks by status %s: %v\n", status, err)
			utils.WriteServerError(w)
			return
		}
		data[name] = count
		total += count
	}
	data["totalTasks"] = total

	start, end := utils.DayBounds(time.Now())
	dueToday, err := h.db.CountTasksDueBetween(start, end)
	if err != nil {
		fmt.Printf("❌ Failed to count tasks due today: %v\n", err)
		utils.WriteServerError(w)
		return
	}
	data["dueToday"] = dueToday

	utils.WriteOK(w, "Task dashboard fetched successfully", utils.Payload{"data": data})
}
