// Package plan parses, validates, and updates Gantt plan files.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Task is a single bar on the timeline. Start and End are inclusive
// calendar days; Start <= End always, and Start == End spans one day.
type Task struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Start Date     `json:"start"`
	End   Date     `json:"end"`
	Deps  []string `json:"deps,omitempty"`
	Color string   `json:"color,omitempty"`
}

// IsZero returns true if the task is empty (has no ID).
func (t *Task) IsZero() bool {
	return t.ID == ""
}

// Span returns End - Start in whole days. A one-day task has span 0.
func (t *Task) Span() int {
	return t.Start.DaysUntil(t.End)
}

// Days returns the inclusive duration in days (span + 1).
func (t *Task) Days() int {
	return t.Span() + 1
}

// File represents the plan file structure.
type File struct {
	SchemaVersion int      `json:"schema_version"`
	Project       *Project `json:"project,omitempty"`
	Tasks         []Task   `json:"tasks"`
}

// Project represents project metadata.
type Project struct {
	Name string `json:"name,omitempty"`
}

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationOptions controls validation behavior.
type ValidationOptions struct {
	// SchemaPath is the path to the JSON Schema file.
	// If empty, validation uses only minimal fallback checks.
	SchemaPath string
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid      bool
	Errors     []error
	Warnings   []string
	UsedSchema bool // true if JSON Schema validation was performed
}

// Load reads and parses a plan file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse plan file: %w", err)
	}

	return &f, nil
}

// Save writes the plan file to path with 2-space indentation.
func (f *File) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan file: %w", err)
	}

	// Add trailing newline
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write plan file: %w", err)
	}

	return nil
}

// Validate validates the plan file.
func (f *File) Validate(opts ValidationOptions) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]string, 0),
	}

	// Try JSON Schema validation first if schema path is provided
	if opts.SchemaPath != "" {
		schemaResult := validateWithSchema(f, opts.SchemaPath)
		result.UsedSchema = schemaResult.UsedSchema
		if len(schemaResult.Warnings) > 0 {
			result.Warnings = append(result.Warnings, schemaResult.Warnings...)
		}
		if schemaResult.UsedSchema {
			if !schemaResult.Valid {
				result.Valid = false
				result.Errors = append(result.Errors, schemaResult.Errors...)
			}
			// Schema cannot express start <= end; always run structural checks too.
			f.validateStructural(result)
			return result
		}
		result.Warnings = append(result.Warnings, "JSON Schema validation not available, using minimal checks")
	}

	f.validateStructural(result)

	return result
}

// validateStructural performs structural validation without JSON Schema.
func (f *File) validateStructural(result *ValidationResult) {
	if f.SchemaVersion != 1 {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Path: "schema_version",
			Err:  fmt.Errorf("expected 1, got %d", f.SchemaVersion),
		})
	}

	if f.Tasks == nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Path: "tasks",
			Err:  fmt.Errorf("missing required field"),
		})
		return
	}

	seen := make(map[string]bool, len(f.Tasks))
	for i := range f.Tasks {
		task := &f.Tasks[i]
		path := fmt.Sprintf("tasks[%d]", i)
		if err := validateTask(task, path); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, err)
			continue
		}
		if seen[task.ID] {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: path + ".id",
				Err:  fmt.Errorf("duplicate id %q", task.ID),
			})
		}
		seen[task.ID] = true
	}

	// Dangling dep references are inert, not errors; surface them as warnings.
	for i := range f.Tasks {
		for _, dep := range f.Tasks[i].Deps {
			if !seen[dep] {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("tasks[%d].deps: unknown task %q (ignored)", i, dep))
			}
		}
	}
}

// validateTask performs minimal single-task validation.
func validateTask(task *Task, path string) *ValidationError {
	if task.ID == "" {
		return &ValidationError{
			Path: path + ".id",
			Err:  fmt.Errorf("missing required field"),
		}
	}

	if task.Name == "" {
		return &ValidationError{
			Path: path + ".name",
			Err:  fmt.Errorf("missing required field"),
		}
	}

	if task.Start.IsZero() || task.End.IsZero() {
		return &ValidationError{
			Path: path,
			Err:  fmt.Errorf("start and end are required"),
		}
	}

	if task.End.Before(task.Start) {
		return &ValidationError{
			Path: path,
			Err:  fmt.Errorf("end %s is before start %s", task.End, task.Start),
		}
	}

	return nil
}

// validateWithSchema attempts JSON Schema validation.
func validateWithSchema(f *File, schemaPath string) *ValidationResult {
	result := &ValidationResult{
		Valid:      true,
		Errors:     make([]error, 0),
		Warnings:   make([]string, 0),
		UsedSchema: false,
	}

	absPath, err := filepath.Abs(schemaPath)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("invalid schema path: %v", err))
		return result
	}

	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("schema file not found: %s", absPath))
		} else {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to read schema file: %v", err))
		}
		return result
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	schema, err := compiler.Compile(absPath)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("invalid schema file: %v", err))
		return result
	}

	result.UsedSchema = true

	// Marshal the file back to JSON for validation
	fileData, err := json.Marshal(f)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("failed to marshal file for validation: %w", err),
		})
		return result
	}

	var fileObj interface{}
	if err := json.Unmarshal(fileData, &fileObj); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("failed to unmarshal file for validation: %w", err),
		})
		return result
	}

	if err := schema.Validate(fileObj); err != nil {
		result.Valid = false
		appendSchemaErrors(result, err)
	}

	return result
}

func appendSchemaErrors(result *ValidationResult, err error) {
	if err == nil {
		return
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Errors = append(result.Errors, err)
		return
	}

	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	parts := strings.Split(ptr, "/")
	path := ""
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}

	return path
}

// GetTask returns a task by ID, or nil if not found.
func (f *File) GetTask(id string) *Task {
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			return &f.Tasks[i]
		}
	}
	return nil
}

// AddTask appends a new task to the list.
func (f *File) AddTask(task Task) {
	f.Tasks = append(f.Tasks, task)
}

// UpdateTask updates an existing task by ID.
func (f *File) UpdateTask(id string, updater func(*Task)) error {
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			updater(&f.Tasks[i])
			return nil
		}
	}
	return fmt.Errorf("task %q not found", id)
}

// RemoveTask deletes a task by ID and strips references to it from the
// remaining tasks' dep lists. Removing an unknown ID is a no-op.
func (f *File) RemoveTask(id string) {
	kept := f.Tasks[:0]
	for i := range f.Tasks {
		if f.Tasks[i].ID != id {
			kept = append(kept, f.Tasks[i])
		}
	}
	f.Tasks = kept
	for i := range f.Tasks {
		deps := f.Tasks[i].Deps[:0]
		for _, dep := range f.Tasks[i].Deps {
			if dep != id {
				deps = append(deps, dep)
			}
		}
		f.Tasks[i].Deps = deps
	}
}

// ToggleDep toggles the edge fromID -> toID: if fromID is already a
// predecessor of toID it is removed, otherwise it is added. Toggling an
// edge onto itself or an unknown successor is a no-op; the engine treats
// unknown predecessor ids as inert so adding one early is harmless.
func (f *File) ToggleDep(fromID, toID string) bool {
	if fromID == toID {
		return false
	}
	task := f.GetTask(toID)
	if task == nil {
		return false
	}
	for i, dep := range task.Deps {
		if dep == fromID {
			task.Deps = append(task.Deps[:i], task.Deps[i+1:]...)
			return true
		}
	}
	task.Deps = append(task.Deps, fromID)
	return true
}
