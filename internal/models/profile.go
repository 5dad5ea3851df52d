package models

import "time"

// UserProfile holds the descriptive attributes of a user. ID is the
// identity provider's subject id.
type UserProfile struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Location            string    `json:"location"`
	Job                 string    `json:"job"`
	Passion             string    `json:"passion"`
	BestPlant           string    `json:"bestPlant"`
	FavoritePlantType   string    `json:"favoritePlantType"`
	GardeningExperience string    `json:"gardeningExperience"`
	PlantGoals          string    `json:"plantGoals"`
	FavoriteSeason      string    `json:"favoriteSeason"`
	GardenSize          string    `json:"gardenSize"`
	SocialMedia         string    `json:"socialMedia,omitempty"`
	Bio                 string    `json:"bio"`
	Avatar              string    `json:"avatar,omitempty"`
	JoinDate            time.Time `json:"joinDate"`
	TotalOrders         int       `json:"totalOrders"`
	FavoriteCategories  []string  `json:"favoriteCategories"`
}

// ProfileRow is the wire/database representation of a profile.
type ProfileRow struct {
	ID                  string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name                string    `json:"name" gorm:"not null"`
	Email               string    `json:"email" gorm:"not null"`
	Location            string    `json:"location"`
	Job                 string    `json:"job"`
	Passion             string    `json:"passion"`
	BestPlant           string    `json:"best_plant"`
	FavoritePlantType   string    `json:"favorite_plant_type"`
	GardeningExperience string    `json:"gardening_experience"`
	PlantGoals          string    `json:"plant_goals"`
	FavoriteSeason      string    `json:"favorite_season"`
	GardenSize          string    `json:"garden_size"`
	SocialMedia         string    `json:"social_media"`
	Bio                 string    `json:"bio"`
	AvatarURL           string    `json:"avatar_url"`
	TotalOrders         int       `json:"total_orders"`
	FavoriteCategories  []string  `json:"favorite_categories" gorm:"serializer:json"`
	CreatedAt           time.Time `json:"created_at,omitempty"`
}

// TableName pins the gateway table name.
func (ProfileRow) TableName() string {
	return "profiles"
}

// ToProfile maps a row onto the in-memory profile.
func (r ProfileRow) ToProfile() UserProfile {
	categories := r.FavoriteCategories
	if categories == nil {
		categories = []string{}
	}
	return UserProfile{
		ID:                  r.ID,
		Name:                r.Name,
		Email:               r.Email,
		Location:            r.Location,
		Job:                 r.Job,
		Passion:             r.Passion,
		BestPlant:           r.BestPlant,
		FavoritePlantType:   r.FavoritePlantType,
		GardeningExperience: r.GardeningExperience,
		PlantGoals:          r.PlantGoals,
		FavoriteSeason:      r.FavoriteSeason,
		GardenSize:          r.GardenSize,
		SocialMedia:         r.SocialMedia,
		Bio:                 r.Bio,
		Avatar:              r.AvatarURL,
		JoinDate:            r.CreatedAt,
		TotalOrders:         r.TotalOrders,
		FavoriteCategories:  categories,
	}
}

// NewProfileRow maps an in-memory profile onto its row.
func NewProfileRow(p UserProfile) ProfileRow {
	categories := p.FavoriteCategories
	if categories == nil {
		categories = []string{}
	}
	return ProfileRow{
		ID:                  p.ID,
		Name:                p.Name,
		Email:               p.Email,
		Location:            p.Location,
		Job:                 p.Job,
		Passion:             p.Passion,
		BestPlant:           p.BestPlant,
		FavoritePlantType:   p.FavoritePlantType,
		GardeningExperience: p.GardeningExperience,
		PlantGoals:          p.PlantGoals,
		FavoriteSeason:      p.FavoriteSeason,
		GardenSize:          p.GardenSize,
		SocialMedia:         p.SocialMedia,
		Bio:                 p.Bio,
		AvatarURL:           p.Avatar,
		TotalOrders:         p.TotalOrders,
		FavoriteCategories:  categories,
		CreatedAt:           p.JoinDate,
	}
}

// ProfileInput carries the sign-up profile attributes.
type ProfileInput struct {
	Name                string   `json:"name" validate:"required,min=2,max=100"`
	Email               string   `json:"email" validate:"required,email"`
	Location            string   `json:"location" validate:"max=120"`
	Job                 string   `json:"job" validate:"max=120"`
	Passion             string   `json:"passion" validate:"max=500"`
	BestPlant           string   `json:"bestPlant" validate:"max=120"`
	FavoritePlantType   string   `json:"favoritePlantType" validate:"max=120"`
	GardeningExperience string   `json:"gardeningExperience" validate:"max=120"`
	PlantGoals          string   `json:"plantGoals" validate:"max=500"`
	FavoriteSeason      string   `json:"favoriteSeason" validate:"max=40"`
	GardenSize          string   `json:"gardenSize" validate:"max=40"`
	SocialMedia         string   `json:"socialMedia" validate:"max=200"`
	Bio                 string   `json:"bio" validate:"max=1000"`
	Avatar              string   `json:"avatar" validate:"omitempty,max=2048"`
	FavoriteCategories  []string `json:"favoriteCategories" validate:"max=20,dive,max=60"`
}

// Profile builds a fresh profile for the identity id.
func (in ProfileInput) Profile(id string) UserProfile {
	categories := in.FavoriteCategories
	if categories == nil {
		categories = []string{}
	}
	return UserProfile{
		ID:                  id,
		Name:                in.Name,
		Email:               in.Email,
		Location:            in.Location,
		Job:                 in.Job,
		Passion:             in.Passion,
		BestPlant:           in.BestPlant,
		FavoritePlantType:   in.FavoritePlantType,
		GardeningExperience: in.GardeningExperience,
		PlantGoals:          in.PlantGoals,
		FavoriteSeason:      in.FavoriteSeason,
		GardenSize:          in.GardenSize,
		SocialMedia:         in.SocialMedia,
		Bio:                 in.Bio,
		Avatar:              in.Avatar,
		FavoriteCategories:  categories,
	}
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Name                *string   `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Location            *string   `json:"location,omitempty" validate:"omitempty,max=120"`
	Job                 *string   `json:"job,omitempty" validate:"omitempty,max=120"`
	Passion             *string   `json:"passion,omitempty" validate:"omitempty,max=500"`
	BestPlant           *string   `json:"bestPlant,omitempty" validate:"omitempty,max=120"`
	FavoritePlantType   *string   `json:"favoritePlantType,omitempty" validate:"omitempty,max=120"`
	GardeningExperience *string   `json:"gardeningExperience,omitempty" validate:"omitempty,max=120"`
	PlantGoals          *string   `json:"plantGoals,omitempty" validate:"omitempty,max=500"`
	FavoriteSeason      *string   `json:"favoriteSeason,omitempty" validate:"omitempty,max=40"`
	GardenSize          *string   `json:"gardenSize,omitempty" validate:"omitempty,max=40"`
	SocialMedia         *string   `json:"socialMedia,omitempty" validate:"omitempty,max=200"`
	Bio                 *string   `json:"bio,omitempty" validate:"omitempty,max=1000"`
	Avatar              *string   `json:"avatar,omitempty" validate:"omitempty,max=2048"`
	TotalOrders         *int      `json:"totalOrders,omitempty" validate:"omitempty,gte=0"`
	FavoriteCategories  *[]string `json:"favoriteCategories,omitempty" validate:"omitempty,max=20,dive,max=60"`
}

// Columns returns the patch keyed by wire column name.
func (p ProfilePatch) Columns() map[string]any {
	cols := make(map[string]any)
	set := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	set("name", p.Name)
	set("location", p.Location)
	set("job", p.Job)
	set("passion", p.Passion)
	set("best_plant", p.BestPlant)
	set("favorite_plant_type", p.FavoritePlantType)
	set("gardening_experience", p.GardeningExperience)
	set("plant_goals", p.PlantGoals)
	set("favorite_season", p.FavoriteSeason)
	set("garden_size", p.GardenSize)
	set("social_media", p.SocialMedia)
	set("bio", p.Bio)
	set("avatar_url", p.Avatar)
	if p.TotalOrders != nil {
		cols["total_orders"] = *p.TotalOrders
	}
	if p.FavoriteCategories != nil {
		cols["favorite_categories"] = *p.FavoriteCategories
	}
	return cols
}

// Apply returns profile with the patch merged in.
func (p ProfilePatch) Apply(profile UserProfile) UserProfile {
	merge := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	merge(&profile.Name, p.Name)
	merge(&profile.Location, p.Location)
	merge(&profile.Job, p.Job)
	merge(&profile.Passion, p.Passion)
	merge(&profile.BestPlant, p.BestPlant)
	merge(&profile.FavoritePlantType, p.FavoritePlantType)
	merge(&profile.GardeningExperience, p.GardeningExperience)
	merge(&profile.PlantGoals, p.PlantGoals)
	merge(&profile.FavoriteSeason, p.FavoriteSeason)
	merge(&profile.GardenSize, p.GardenSize)
	merge(&profile.SocialMedia, p.SocialMedia)
	merge(&profile.Bio, p.Bio)
	merge(&profile.Avatar, p.Avatar)
	if p.TotalOrders != nil {
		profile.TotalOrders = *p.TotalOrders
	}
	if p.FavoriteCategories != nil {
		profile.FavoriteCategories = append([]string(nil), (*p.FavoriteCategories)...)
	}
	return profile
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return len(p.Columns()) == 0
}
