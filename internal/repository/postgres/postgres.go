package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/campuswell/counseling-api/internal/repository"
)

type appointmentRepository struct {
	db *sqlx.DB
}

type counselorRepository struct {
	db *sqlx.DB
}

type crisisAlertRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewCounselorRepository(db *sqlx.DB) repository.CounselorRepository {
	return &counselorRepository{db: db}
}

func NewCrisisAlertRepository(db *sqlx.DB) repository.CrisisAlertRepository {
	return &crisisAlertRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}
