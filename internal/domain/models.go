// Package domain defines the persistence models for users, direct messages,
// groups, group messages, and AI exchanges. These types are mapped with GORM
// and form the core data layer of the messenger application.
package domain

import "time"

// User is a registered account. The password hash never leaves the server;
// it is excluded from JSON serialization.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username / Email: unique login identifiers.
//   - PasswordHash: bcrypt hash of the password.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Message is a directed one-to-one message. Rows are append-only: content is
// never edited, is_read flips false->true exactly once (by the recipient), and
// only the sender may hard-delete the row.
//
// The integer primary key is auto-incremented, so id order equals insertion
// order; ordering ties on created_at are broken by id.
type Message struct {
	ID          int64     `json:"id"           gorm:"primaryKey;autoIncrement"`
	SenderID    string    `json:"sender_id"    gorm:"type:char(36);not null;index:idx_msgs_sender"`
	RecipientID string    `json:"recipient_id" gorm:"type:char(36);not null;index:idx_msgs_recipient"`
	Content     string    `json:"content"      gorm:"type:text;not null"`
	IsRead      bool      `json:"is_read"      gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index"`

	Sender    User `json:"-" gorm:"foreignKey:SenderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Recipient User `json:"-" gorm:"foreignKey:RecipientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Group is a named chat room. The creator becomes the first member in the
// same transaction that creates the group.
type Group struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedBy   string    `json:"created_by"  gorm:"type:char(36);not null;index"`
	CreatedAt   time.Time `json:"created_at"`

	Creator User `json:"-" gorm:"foreignKey:CreatedBy;references:ID"`
}

// TableName returns the database table name for Group.
func (Group) TableName() string { return "groups" }

// GroupMembership links a user to a group. The (group_id, user_id) pair is the
// primary key; inserts use ON CONFLICT DO NOTHING so concurrent adds of the
// same user converge on a single row. Membership is the sole authorization
// credential for group reads and writes, and it is never removed.
type GroupMembership struct {
	GroupID  string    `json:"group_id"  gorm:"type:char(36);primaryKey"`
	UserID   string    `json:"user_id"   gorm:"type:char(36);primaryKey;index:idx_memberships_user"`
	JoinedAt time.Time `json:"joined_at"`

	Group Group `json:"-" gorm:"foreignKey:GroupID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User  User  `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for GroupMembership.
func (GroupMembership) TableName() string { return "group_memberships" }

// GroupMessage is a message posted into a group by a current member.
// Rows are immutable and never deleted.
type GroupMessage struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	GroupID   string    `json:"group_id"   gorm:"type:char(36);not null;index:idx_group_msgs,priority:1"`
	SenderID  string    `json:"sender_id"  gorm:"type:char(36);not null;index"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_group_msgs,priority:2"`

	Group  Group `json:"-" gorm:"foreignKey:GroupID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Sender User  `json:"-" gorm:"foreignKey:SenderID;references:ID"`
}

// TableName returns the database table name for GroupMessage.
func (GroupMessage) TableName() string { return "group_messages" }

// AiExchange stores one prompt/response round-trip with the assistant.
// Rows are read-only after creation and bulk-deletable only by their owner.
type AiExchange struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index:idx_ai_user,priority:1"`
	Message   string    `json:"message"    gorm:"type:text;not null"`
	Response  string    `json:"response"   gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_ai_user,priority:2"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AiExchange.
func (AiExchange) TableName() string { return "ai_exchanges" }

// Conversation is the derived per-counterpart view: the single most recent
// direct message exchanged with one other user. It is materialized on read
// from Message rows and never stored.
type Conversation struct {
	OtherUserID   string    `json:"other_user_id"`
	OtherUsername string    `json:"other_username"`
	LastMessage   string    `json:"last_message"`
	LastMessageID int64     `json:"last_message_id"`
	LastTimestamp time.Time `json:"last_timestamp"`
}

// ThreadMessage is a direct message joined with both endpoints' usernames,
// as returned by the thread view.
type ThreadMessage struct {
	ID                int64     `json:"id"`
	SenderID          string    `json:"sender_id"`
	SenderUsername    string    `json:"sender_username"`
	RecipientID       string    `json:"recipient_id"`
	RecipientUsername string    `json:"recipient_username"`
	Content           string    `json:"content"`
	IsRead            bool      `json:"is_read"`
	CreatedAt         time.Time `json:"created_at"`
}

// GroupThreadMessage is a group message joined with its sender's username.
type GroupThreadMessage struct {
	ID             int64     `json:"id"`
	GroupID        string    `json:"group_id"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Member is a group membership joined with the member's username.
type Member struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// Turn roles in a reconstructed AI history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged unit in a reconstructed AI history. Each stored
// AiExchange expands into exactly two turns: user then assistant.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
