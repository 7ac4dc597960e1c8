package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/meeting-coordinator/internal/persistence"
)

// MeetingRepository implements persistence.MeetingRepository using SQLite.
type MeetingRepository struct {
	helper *QueryHelper
}

// NewMeetingRepository creates a new SQLite meeting repository.
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{helper: NewQueryHelper(pool)}
}

// CreateMeeting inserts a meeting and its participant edges in one transaction.
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	return r.helper.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		insertMeeting := `
			INSERT INTO meetings (id, coordinator_id, title, description, start_time, end_time, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := r.helper.ExecTx(tx, insertMeeting,
			meeting.ID,
			meeting.CoordinatorID,
			meeting.Title,
			nullableString(meeting.Description),
			formatTime(meeting.Start),
			formatTime(meeting.End),
			formatTime(meeting.CreatedAt),
			formatTime(meeting.UpdatedAt),
		)
		if err != nil {
			return mapSQLiteError(err)
		}

		insertParticipant := `
			INSERT INTO meeting_participants (meeting_id, user_id, created_at)
			VALUES (?, ?, ?)
		`
		for _, participantID := range meeting.ParticipantIDs {
			if _, err := r.helper.ExecTx(tx, insertParticipant, meeting.ID, participantID, formatTime(meeting.CreatedAt)); err != nil {
				return mapSQLiteError(err)
			}
		}
		return nil
	})
}

// GetMeeting fetches a meeting and its participant ids.
func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	query := `
		SELECT id, coordinator_id, title, description, start_time, end_time, created_at, updated_at
		FROM meetings
		WHERE id = ?
	`
	meeting, err := r.scanMeeting(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Meeting{}, err
	}

	if meeting.ParticipantIDs, err = r.listParticipants(ctx, meeting.ID); err != nil {
		return persistence.Meeting{}, err
	}
	return meeting, nil
}

// ListMeetingsByCoordinator returns a coordinator's meetings ordered by start time.
func (r *MeetingRepository) ListMeetingsByCoordinator(ctx context.Context, coordinatorID string) ([]persistence.Meeting, error) {
	query := `
		SELECT id, coordinator_id, title, description, start_time, end_time, created_at, updated_at
		FROM meetings
		WHERE coordinator_id = ?
		ORDER BY start_time ASC, id ASC
	`
	rows, err := r.helper.Query(ctx, query, coordinatorID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var meetings []persistence.Meeting
	for rows.Next() {
		meeting, err := r.scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}

	for i := range meetings {
		if meetings[i].ParticipantIDs, err = r.listParticipants(ctx, meetings[i].ID); err != nil {
			return nil, err
		}
	}
	return meetings, nil
}

func (r *MeetingRepository) listParticipants(ctx context.Context, meetingID string) ([]string, error) {
	query := `
		SELECT user_id FROM meeting_participants
		WHERE meeting_id = ?
		ORDER BY user_id ASC
	`
	rows, err := r.helper.Query(ctx, query, meetingID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapSQLiteError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return ids, nil
}

func (r *MeetingRepository) scanMeeting(row rowScanner) (persistence.Meeting, error) {
	var meeting persistence.Meeting
	var description sql.NullString
	var start, end, createdAt, updatedAt string

	err := row.Scan(
		&meeting.ID,
		&meeting.CoordinatorID,
		&meeting.Title,
		&description,
		&start,
		&end,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Meeting{}, mapSQLiteError(err)
	}

	meeting.Description = stringFromNull(description)
	if meeting.Start, err = parseTime(start, "start_time"); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.End, err = parseTime(end, "end_time"); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return persistence.Meeting{}, err
	}
	return meeting, nil
}
