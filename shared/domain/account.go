package domain

import "time"

type Account struct {
	Id            AccountId
	Email         Email  // plaintext, only populated when decrypted
	EmailHash     []byte // deterministic lookup key
	EmailCipher   []byte // AES-GCM ciphertext; nil after erasure
	PassHash      string
	EmailVerified bool
	Suspended     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Tombstone
}

// Active reports whether the account may act on the board at all.
func (a Account) Active() bool {
	return a.Visible() && !a.Suspended
}

type MemberStatus string

const (
	MemberPending   MemberStatus = "pending"
	MemberActive    MemberStatus = "active"
	MemberSuspended MemberStatus = "suspended"
	MemberLocked    MemberStatus = "locked"
	MemberBanned    MemberStatus = "banned"
)

var memberTransitions = map[MemberStatus][]MemberStatus{
	MemberPending:   {MemberActive, MemberBanned},
	MemberActive:    {MemberSuspended, MemberLocked, MemberBanned},
	MemberSuspended: {MemberActive, MemberBanned},
	MemberLocked:    {MemberActive, MemberBanned},
	MemberBanned:    {MemberActive},
}

func (s MemberStatus) Valid() bool {
	_, ok := memberTransitions[s]
	return ok
}

func (s MemberStatus) CanTransition(to MemberStatus) bool {
	return contains(memberTransitions[s], to)
}

// Sanctioned statuses block login and every authenticated request.
func (s MemberStatus) Sanctioned() bool {
	return s == MemberSuspended || s == MemberLocked || s == MemberBanned
}

type Member struct {
	Id        MemberId
	AccountId AccountId
	Nickname  string
	Status    MemberStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	Tombstone
}

type AssignmentStatus string

const (
	AssignmentActive  AssignmentStatus = "active"
	AssignmentRevoked AssignmentStatus = "revoked"
)

// RoleAssignment is the escalation record shared by moderators and administrators.
// There is at most one record per (MemberId, Role).
type RoleAssignment struct {
	Id         AssignmentId
	MemberId   MemberId
	Role       Role
	AssignedBy *MemberId // nil only for the bootstrap administrator
	AssignedAt time.Time
	Status     AssignmentStatus
	RevokedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Tombstone
}

func (r RoleAssignment) Active() bool {
	return r.Visible() && r.Status == AssignmentActive && r.RevokedAt == nil
}

// Reactivate flips a revoked record back to active in place.
func (r *RoleAssignment) Reactivate(by *MemberId, now time.Time) {
	r.Status = AssignmentActive
	r.RevokedAt = nil
	r.Restore()
	r.AssignedBy = by
	r.AssignedAt = now
	r.UpdatedAt = now
}

// Revoke marks the record revoked and tombstones it.
func (r *RoleAssignment) Revoke(now time.Time) error {
	if err := r.SoftDelete(now); err != nil {
		return err
	}
	stamp := now.UTC()
	r.Status = AssignmentRevoked
	r.RevokedAt = &stamp
	r.UpdatedAt = now
	return nil
}

type ConfirmationData struct {
	Email                string
	AccountId            AccountId
	ConfirmationCodeHash string
	Expires              time.Time
}

// Session is a refresh token record. Only the SHA-256 of the token is stored.
type Session struct {
	Id         SessionId
	AccountId  AccountId
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *SessionId
	CreatedAt  time.Time
}

func (s Session) Usable(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func contains[T comparable](items []T, v T) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
