package graph

// Object is a typed view over a raw record.
type Object interface {
	// Copy populates the object from r. Keys the type does not recognize are ignored and
	// fields whose keys are absent keep their current value.
	Copy(r Record)

	// ObjectID returns the Graph API id of the object.
	ObjectID() string
}

// FBObject is the generic Graph API object: every object has an id and most have a name.
type FBObject struct {
	ID   string
	Name string
}

// Copy populates the id and name.
func (o *FBObject) Copy(r Record) {
	copyString(r, "id", &o.ID)
	copyString(r, "name", &o.Name)
}

// ObjectID returns the object id.
func (o *FBObject) ObjectID() string {
	return o.ID
}

// User is a Graph API user. See https://developers.facebook.com/docs/graph-api/reference/user/
type User struct {
	FBObject
	FirstName          string
	MiddleName         string
	LastName           string
	Username           string
	Link               string
	About              string
	Birthday           string // MM/DD/YYYY
	Email              string
	Website            string
	Gender             string
	Locale             string
	RelationshipStatus string
	UpdatedTime        string
	Timezone           int
	Verified           bool
	Hometown           FBObject
	Location           FBObject
}

// Copy populates the user fields present in r.
func (u *User) Copy(r Record) {
	u.FBObject.Copy(r)
	copyString(r, "first_name", &u.FirstName)
	copyString(r, "middle_name", &u.MiddleName)
	copyString(r, "last_name", &u.LastName)
	copyString(r, "username", &u.Username)
	copyString(r, "link", &u.Link)
	copyString(r, "about", &u.About)
	copyString(r, "birthday", &u.Birthday)
	copyString(r, "email", &u.Email)
	copyString(r, "website", &u.Website)
	copyString(r, "gender", &u.Gender)
	copyString(r, "locale", &u.Locale)
	copyString(r, "relationship_status", &u.RelationshipStatus)
	copyString(r, "updated_time", &u.UpdatedTime)
	copyInt(r, "timezone", &u.Timezone)
	copyBool(r, "verified", &u.Verified)
	copyObject(r, "hometown", &u.Hometown)
	copyObject(r, "location", &u.Location)
}

// Post is a feed entry.
type Post struct {
	FBObject
	From          FBObject
	To            []FBObject
	Message       string
	Picture       string
	Link          string
	Caption       string
	Description   string
	Source        string
	Icon          string
	Type          string
	CreatedTime   string
	UpdatedTime   string
	LikesCount    int
	CommentsCount int
}

// Copy populates the post fields present in r.
func (p *Post) Copy(r Record) {
	p.FBObject.Copy(r)
	copyObject(r, "from", &p.From)
	if r.Has("to") {
		p.To = nil
		for _, rec := range r.Records("to") {
			var o FBObject
			o.Copy(rec)
			p.To = append(p.To, o)
		}
	}
	copyString(r, "message", &p.Message)
	copyString(r, "picture", &p.Picture)
	copyString(r, "link", &p.Link)
	copyString(r, "caption", &p.Caption)
	copyString(r, "description", &p.Description)
	copyString(r, "source", &p.Source)
	copyString(r, "icon", &p.Icon)
	copyString(r, "type", &p.Type)
	copyString(r, "created_time", &p.CreatedTime)
	copyString(r, "updated_time", &p.UpdatedTime)
	copyCount(r, "likes", &p.LikesCount)
	copyCount(r, "comments", &p.CommentsCount)
}

// Photo is a single photo object.
type Photo struct {
	FBObject
	From        FBObject
	Picture     string
	Source      string
	Icon        string
	Link        string
	Height      int
	Width       int
	Position    int
	CreatedTime string
	UpdatedTime string
}

// Copy populates the photo fields present in r.
func (p *Photo) Copy(r Record) {
	p.FBObject.Copy(r)
	copyObject(r, "from", &p.From)
	copyString(r, "picture", &p.Picture)
	copyString(r, "source", &p.Source)
	copyString(r, "icon", &p.Icon)
	copyString(r, "link", &p.Link)
	copyInt(r, "height", &p.Height)
	copyInt(r, "width", &p.Width)
	copyInt(r, "position", &p.Position)
	copyString(r, "created_time", &p.CreatedTime)
	copyString(r, "updated_time", &p.UpdatedTime)
}

// Album is a photo album.
type Album struct {
	FBObject
	From        FBObject
	Description string
	Location    string
	Link        string
	Privacy     string
	Type        string
	CoverPhoto  string
	Count       int
	CreatedTime string
	UpdatedTime string
}

// Copy populates the album fields present in r.
func (a *Album) Copy(r Record) {
	a.FBObject.Copy(r)
	copyObject(r, "from", &a.From)
	copyString(r, "description", &a.Description)
	copyString(r, "location", &a.Location)
	copyString(r, "link", &a.Link)
	copyString(r, "privacy", &a.Privacy)
	copyString(r, "type", &a.Type)
	copyString(r, "cover_photo", &a.CoverPhoto)
	copyInt(r, "count", &a.Count)
	copyString(r, "created_time", &a.CreatedTime)
	copyString(r, "updated_time", &a.UpdatedTime)
}

// Comment is a comment on a post or photo.
type Comment struct {
	FBObject
	From        FBObject
	Message     string
	CreatedTime string
	LikesCount  int
}

// Copy populates the comment fields present in r.
func (c *Comment) Copy(r Record) {
	c.FBObject.Copy(r)
	copyObject(r, "from", &c.From)
	copyString(r, "message", &c.Message)
	copyString(r, "created_time", &c.CreatedTime)
	copyCount(r, "likes", &c.LikesCount)
}

func copyString(r Record, key string, dst *string) {
	if r.Has(key) {
		*dst = r.String(key)
	}
}

func copyInt(r Record, key string, dst *int) {
	if r.Has(key) {
		*dst = r.Int(key)
	}
}

func copyBool(r Record, key string, dst *bool) {
	if r.Has(key) {
		*dst = r.Bool(key)
	}
}

func copyObject(r Record, key string, dst *FBObject) {
	if nested := r.Record(key); nested != nil {
		dst.Copy(nested)
	}
}

// copyCount reads either a bare number or a {"count": n} summary.
func copyCount(r Record, key string, dst *int) {
	if !r.Has(key) {
		return
	}
	if nested := r.Record(key); nested != nil {
		if nested.Has("count") {
			*dst = nested.Int("count")
		} else if nested.Has("summary") {
			*dst = nested.Record("summary").Int("total_count")
		} else {
			*dst = len(nested.Records("data"))
		}
		return
	}
	*dst = r.Int(key)
}
