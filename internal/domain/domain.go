package domain

import (
	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
	"github.com/yungbote/shipdash-backend/internal/domain/records"
	"github.com/yungbote/shipdash-backend/internal/domain/shipments"
)

type Record = records.Record
type Row = records.Row
type Field = records.Field
type Filter = records.Filter
type Query = records.Query
type Page = records.Page

type Severity = shipments.Severity
type ShipmentStats = shipments.Stats

type Task = jobs.Task
type TaskStatus = jobs.TaskStatus
