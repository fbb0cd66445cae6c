package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table the service owns.  The two unique keys are
// part of the booking invariants, not optimisations:
//   uq_reservation_slot  – at most one active reservation per (day, court, slot)
//   uq_cancellation_orig – at most one cancellation snapshot per reservation
var schema = []string{
	`CREATE TABLE IF NOT EXISTS admins (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(100) NOT NULL,
		email         VARCHAR(255) NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_admin_name (name),
		UNIQUE KEY uq_admin_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS members (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(100) NOT NULL,
		email      VARCHAR(255) NOT NULL,
		phone      VARCHAR(20)  NOT NULL,
		membership ENUM('1M','3M','6M') NOT NULL,
		credits    INT UNSIGNED NOT NULL DEFAULT 0,
		amount_due INT UNSIGNED NOT NULL DEFAULT 0,
		paid       TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_member_email (email),
		KEY idx_member_phone (phone)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name            VARCHAR(100) NOT NULL,
		is_member       TINYINT(1) NOT NULL DEFAULT 0,
		member_id       BIGINT UNSIGNED NULL,
		res_date        DATE NOT NULL,
		court           VARCHAR(16) NOT NULL,
		slot            CHAR(5) NOT NULL,
		amount_due      INT UNSIGNED NOT NULL DEFAULT 0,
		paid            TINYINT(1) NOT NULL DEFAULT 0,
		refunded        TINYINT(1) NOT NULL DEFAULT 0,
		credits_charged INT UNSIGNED NOT NULL DEFAULT 0,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_reservation_slot (res_date, court, slot),
		KEY idx_reservation_member (member_id),
		CONSTRAINT fk_reservation_member FOREIGN KEY (member_id) REFERENCES members (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS cancellations (
		id                      BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		original_reservation_id BIGINT UNSIGNED NOT NULL,
		name                    VARCHAR(100) NOT NULL,
		is_member               TINYINT(1) NOT NULL DEFAULT 0,
		member_id               BIGINT UNSIGNED NULL,
		res_date                DATE NOT NULL,
		court                   VARCHAR(16) NOT NULL,
		slot                    CHAR(5) NOT NULL,
		amount_due              INT UNSIGNED NOT NULL DEFAULT 0,
		paid                    TINYINT(1) NOT NULL DEFAULT 0,
		refunded                TINYINT(1) NOT NULL DEFAULT 0,
		credits_charged         INT UNSIGNED NOT NULL DEFAULT 0,
		booked_at               DATETIME NOT NULL,
		cancelled_at            DATETIME NOT NULL,
		UNIQUE KEY uq_cancellation_orig (original_reservation_id),
		KEY idx_cancellation_date (res_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS legacy_bookings (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(100) NOT NULL,
		is_member  TINYINT(1) NOT NULL DEFAULT 0,
		res_date   DATE NOT NULL,
		court1     JSON NULL,
		court2     JSON NULL,
		court3     JSON NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_legacy_date (res_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
