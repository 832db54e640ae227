package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chat-rooms-service/internal/models"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomMemberNotFound = errors.New("room member not found")
	ErrDuplicateRoom      = errors.New("private room already exists")
)

const roomColumns = `id, room_name, is_group, created_by, co_member, co_members, bookmarked_by, pinned_by, archived_by, is_public, created_at, updated_at`

// RoomFlag identifies one of the per-user BIGINT[] flags on a room.
type RoomFlag string

const (
	FlagBookmarked RoomFlag = "bookmarked_by"
	FlagPinned     RoomFlag = "pinned_by"
	FlagArchived   RoomFlag = "archived_by"
)

// RoomUpdate carries the optional fields of a partial room update. Nil
// fields are left untouched.
type RoomUpdate struct {
	RoomName *string
	IsPublic *bool
}

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	CreatePrivateRoom(ctx context.Context, createdBy int64, coMember int64) (models.Room, error)
	CreateGroupRoom(ctx context.Context, createdBy int64, name string, memberIDs []int64) (models.Room, error)
	GetRoom(ctx context.Context, roomID int64) (models.Room, error)
	ListRoomsForUser(ctx context.Context, userID int64) ([]models.Room, error)
	IsMember(ctx context.Context, roomID int64, userID int64) (bool, error)
	MemberRole(ctx context.Context, roomID int64, userID int64) (string, error)
	AddMember(ctx context.Context, roomID int64, userID int64) error
	RemoveMember(ctx context.Context, roomID int64, userID int64) error
	SetMemberRole(ctx context.Context, roomID int64, userID int64, role string) error
	UpdateRoom(ctx context.Context, roomID int64, update RoomUpdate) (models.Room, error)
	SetUserFlag(ctx context.Context, roomID int64, userID int64, flag RoomFlag, on bool) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// CreatePrivateRoom creates a 1:1 room between createdBy and coMember,
// rejecting duplicates regardless of which side created the existing
// room.
func (r *RoomRepo) CreatePrivateRoom(ctx context.Context, createdBy int64, coMember int64) (models.Room, error) {
	if createdBy == coMember {
		return models.Room{}, errors.New("cannot create room with self")
	}

	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(
        SELECT 1 FROM rooms WHERE is_group = FALSE
        AND ((created_by = $1 AND co_member = $2) OR (created_by = $2 AND co_member = $1)))`,
		createdBy, coMember)
	if err != nil {
		return models.Room{}, err
	}
	if exists {
		return models.Room{}, ErrDuplicateRoom
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var room models.Room
	if err = tx.QueryRowxContext(ctx, `INSERT INTO rooms (is_group, created_by, co_member)
        VALUES (FALSE, $1, $2) RETURNING `+roomColumns, createdBy, coMember).
		StructScan(&room); err != nil {
		return models.Room{}, err
	}

	for _, id := range []int64{createdBy, coMember} {
		if _, err = tx.ExecContext(ctx, `INSERT INTO room_members (room_id, user_id, role) VALUES ($1, $2, 'member')`, room.ID, id); err != nil {
			return models.Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// CreateGroupRoom creates a group room and its membership rows
// atomically. The creator is always included and gets the admin role.
func (r *RoomRepo) CreateGroupRoom(ctx context.Context, createdBy int64, name string, memberIDs []int64) (models.Room, error) {
	memberSet := map[int64]struct{}{createdBy: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	ids := make([]int64, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var room models.Room
	if err = tx.QueryRowxContext(ctx, `INSERT INTO rooms (room_name, is_group, created_by, co_members)
        VALUES ($1, TRUE, $2, $3) RETURNING `+roomColumns, name, createdBy, pq.Int64Array(ids)).
		StructScan(&room); err != nil {
		return models.Room{}, err
	}

	for _, id := range ids {
		role := models.RoleMember
		if id == createdBy {
			role = models.RoleAdmin
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO room_members (room_id, user_id, role) VALUES ($1, $2, $3)`, room.ID, id, role); err != nil {
			return models.Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int64) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// ListRoomsForUser returns every room the user belongs to, as either a
// private counterpart, a private creator or a group member.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID int64) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms, `SELECT `+roomColumns+` FROM rooms
        WHERE co_member = $1 OR created_by = $1 OR $1 = ANY(co_members)
        ORDER BY created_at DESC`, userID)
	return rooms, err
}

// IsMember checks membership via room_members.
func (r *RoomRepo) IsMember(ctx context.Context, roomID int64, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id=$1 AND user_id=$2)`, roomID, userID)
	return exists, err
}

// MemberRole returns the member's role in the room, or
// ErrRoomMemberNotFound.
func (r *RoomRepo) MemberRole(ctx context.Context, roomID int64, userID int64) (string, error) {
	var role string
	err := r.db.GetContext(ctx, &role, `SELECT role FROM room_members WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRoomMemberNotFound
	}
	return role, err
}

// AddMember adds a user to a group room, keeping the co_members array
// and the room_members rows in step.
func (r *RoomRepo) AddMember(ctx context.Context, roomID int64, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO room_members (room_id, user_id, role) VALUES ($1, $2, 'member')
        ON CONFLICT (room_id, user_id) DO NOTHING`, roomID, userID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE rooms SET co_members = array_append(co_members, $2), updated_at = NOW()
        WHERE id=$1 AND NOT ($2 = ANY(co_members))`, roomID, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveMember removes a user from a group room.
func (r *RoomRepo) RemoveMember(ctx context.Context, roomID int64, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM room_members WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrRoomMemberNotFound
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE rooms SET co_members = array_remove(co_members, $2), updated_at = NOW() WHERE id=$1`, roomID, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// SetMemberRole promotes or demotes a member inside a room.
func (r *RoomRepo) SetMemberRole(ctx context.Context, roomID int64, userID int64, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE room_members SET role=$3 WHERE room_id=$1 AND user_id=$2`, roomID, userID, role)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomMemberNotFound
	}
	return nil
}

// UpdateRoom applies a partial update. The SET clause is assembled from
// a fixed set of optional fields, each mapped to a named column.
func (r *RoomRepo) UpdateRoom(ctx context.Context, roomID int64, update RoomUpdate) (models.Room, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{roomID}

	if update.RoomName != nil {
		args = append(args, *update.RoomName)
		sets = append(sets, fmt.Sprintf("room_name = $%d", len(args)))
	}
	if update.IsPublic != nil {
		args = append(args, *update.IsPublic)
		sets = append(sets, fmt.Sprintf("is_public = $%d", len(args)))
	}

	query := `UPDATE rooms SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + roomColumns
	var room models.Room
	err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&room)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// SetUserFlag adds or removes the user from one of the room's per-user
// flag arrays. The flag maps to a fixed column; anything else is
// rejected before touching SQL.
func (r *RoomRepo) SetUserFlag(ctx context.Context, roomID int64, userID int64, flag RoomFlag, on bool) error {
	var query string
	switch flag {
	case FlagBookmarked:
		if on {
			query = `UPDATE rooms SET bookmarked_by = array_append(bookmarked_by, $2) WHERE id=$1 AND NOT ($2 = ANY(bookmarked_by))`
		} else {
			query = `UPDATE rooms SET bookmarked_by = array_remove(bookmarked_by, $2) WHERE id=$1`
		}
	case FlagPinned:
		if on {
			query = `UPDATE rooms SET pinned_by = array_append(pinned_by, $2) WHERE id=$1 AND NOT ($2 = ANY(pinned_by))`
		} else {
			query = `UPDATE rooms SET pinned_by = array_remove(pinned_by, $2) WHERE id=$1`
		}
	case FlagArchived:
		if on {
			query = `UPDATE rooms SET archived_by = array_append(archived_by, $2) WHERE id=$1 AND NOT ($2 = ANY(archived_by))`
		} else {
			query = `UPDATE rooms SET archived_by = array_remove(archived_by, $2) WHERE id=$1`
		}
	default:
		return fmt.Errorf("unknown room flag %q", flag)
	}

	_, err := r.db.ExecContext(ctx, query, roomID, userID)
	return err
}
