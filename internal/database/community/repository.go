// Package community provides database operations for communities, posts and comments.
package community

import (
	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/entities"
)

const membersTable = "community_members"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Summary is a community with its member count.
type Summary struct {
	entities.Community
	MemberCount int64 `json:"member_count"`
	IsMember    bool  `json:"is_member"`
}

// CreateCommunity stores the community and joins its creator to it.
func (r *Repository) CreateCommunity(c *entities.Community) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Creator", "Members").Create(c).Error; err != nil {
			return err
		}
		return tx.Table(membersTable).Create(map[string]any{
			"community_id": c.ID,
			"user_id":      c.CreatorID,
		}).Error
	})
}

func (r *Repository) GetCommunity(id uint) (*entities.Community, error) {
	var c entities.Community
	err := r.db.Preload("Creator").First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// NameTaken reports whether a community with the name already exists.
func (r *Repository) NameTaken(name string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Community{}).Where("LOWER(name) = LOWER(?)", name).Count(&count).Error
	return count > 0, err
}

// ListCommunities returns every community with member counts, flagging the ones userID belongs to.
func (r *Repository) ListCommunities(userID uint) ([]Summary, error) {
	var items []entities.Community
	if err := r.db.Preload("Creator").Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		CommunityID uint
		Count       int64
	}
	err := r.db.Table(membersTable).Select("community_id, COUNT(*) AS count").Group("community_id").Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.CommunityID] = c.Count
	}

	joined, err := r.UserCommunityIDs(userID)
	if err != nil {
		return nil, err
	}
	member := make(map[uint]bool, len(joined))
	for _, id := range joined {
		member[id] = true
	}

	out := make([]Summary, 0, len(items))
	for _, c := range items {
		out = append(out, Summary{Community: c, MemberCount: byID[c.ID], IsMember: member[c.ID]})
	}
	return out, nil
}

// IsMember reports whether the user belongs to the community.
func (r *Repository) IsMember(communityID, userID uint) (bool, error) {
	var count int64
	err := r.db.Table(membersTable).Where("community_id = ? AND user_id = ?", communityID, userID).Count(&count).Error
	return count > 0, err
}

// Join adds the user to the community. Joining twice is a no-op.
func (r *Repository) Join(communityID, userID uint) error {
	member, err := r.IsMember(communityID, userID)
	if err != nil || member {
		return err
	}
	return r.db.Table(membersTable).Create(map[string]any{
		"community_id": communityID,
		"user_id":      userID,
	}).Error
}

// Leave removes the user from the community.
func (r *Repository) Leave(communityID, userID uint) error {
	return r.db.Exec("DELETE FROM "+membersTable+" WHERE community_id = ? AND user_id = ?", communityID, userID).Error
}

// Members returns the users of a community.
func (r *Repository) Members(communityID uint) ([]entities.User, error) {
	var users []entities.User
	err := r.db.Joins("JOIN "+membersTable+" ON "+membersTable+".user_id = users.id").
		Where(membersTable+".community_id = ?", communityID).
		Order("users.username ASC").
		Find(&users).Error
	return users, err
}

// UserCommunityIDs returns the IDs of communities the user has joined.
func (r *Repository) UserCommunityIDs(userID uint) ([]uint, error) {
	var ids []uint
	if userID == 0 {
		return ids, nil
	}
	err := r.db.Table(membersTable).Where("user_id = ?", userID).Pluck("community_id", &ids).Error
	return ids, err
}
