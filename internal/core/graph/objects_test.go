package graph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) Record {
	t.Helper()
	var r Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

func TestUser_Copy_RecognizedFields(t *testing.T) {
	r := decode(t, `{
		"id": "123",
		"name": "Ada Lovelace",
		"first_name": "Ada",
		"last_name": "Lovelace",
		"gender": "female",
		"timezone": 2,
		"verified": true,
		"hometown": {"id": "42", "name": "London"},
		"favourite_engine": "analytical"
	}`)

	var u User
	u.Copy(r)

	want := User{
		FBObject:  FBObject{ID: "123", Name: "Ada Lovelace"},
		FirstName: "Ada",
		LastName:  "Lovelace",
		Gender:    "female",
		Timezone:  2,
		Verified:  true,
		Hometown:  FBObject{ID: "42", Name: "London"},
	}
	if diff := cmp.Diff(want, u); diff != "" {
		t.Errorf("User mismatch (-want +got):\n%s", diff)
	}
}

func TestUser_Copy_MissingKeysKeepValues(t *testing.T) {
	u := User{FBObject: FBObject{ID: "1"}, Email: "keep@example.com"}
	u.Copy(Record{"name": "New Name"})

	assert.Equal(t, "1", u.ID)
	assert.Equal(t, "New Name", u.Name)
	assert.Equal(t, "keep@example.com", u.Email)
}

func TestPost_Copy(t *testing.T) {
	r := decode(t, `{
		"id": "1_2",
		"from": {"id": "1", "name": "Sender"},
		"to": {"data": [{"id": "3", "name": "A"}, {"id": "4", "name": "B"}]},
		"message": "hello",
		"type": "status",
		"likes": {"count": 7},
		"comments": {"data": [{"id": "c1"}, {"id": "c2"}]},
		"created_time": "2011-01-01T00:00:00+0000"
	}`)

	var p Post
	p.Copy(r)

	assert.Equal(t, "1_2", p.ID)
	assert.Equal(t, FBObject{ID: "1", Name: "Sender"}, p.From)
	assert.Equal(t, []FBObject{{ID: "3", Name: "A"}, {ID: "4", Name: "B"}}, p.To)
	assert.Equal(t, "hello", p.Message)
	assert.Equal(t, "status", p.Type)
	assert.Equal(t, 7, p.LikesCount)
	assert.Equal(t, 2, p.CommentsCount)
	assert.Equal(t, "2011-01-01T00:00:00+0000", p.CreatedTime)
}

func TestPost_Copy_NumericLikes(t *testing.T) {
	var p Post
	p.Copy(Record{"likes": float64(12)})
	assert.Equal(t, 12, p.LikesCount)
}

func TestPhotoAndAlbum_Copy(t *testing.T) {
	var ph Photo
	ph.Copy(decode(t, `{"id":"p1","source":"http://img/p1.jpg","width":640,"height":"480"}`))
	assert.Equal(t, "p1", ph.ID)
	assert.Equal(t, "http://img/p1.jpg", ph.Source)
	assert.Equal(t, 640, ph.Width)
	assert.Equal(t, 480, ph.Height)

	var al Album
	al.Copy(decode(t, `{"id":"a1","name":"Trip","count":12,"cover_photo":"p1","from":{"id":"9"}}`))
	assert.Equal(t, "a1", al.ID)
	assert.Equal(t, "Trip", al.Name)
	assert.Equal(t, 12, al.Count)
	assert.Equal(t, "p1", al.CoverPhoto)
	assert.Equal(t, "9", al.From.ID)
}

func TestRecord_Accessors(t *testing.T) {
	r := decode(t, `{"s":"x","n":5,"b":true,"o":{"k":"v"},"arr":[{"a":1},"skip",{"a":2}]}`)

	assert.Equal(t, "x", r.String("s"))
	assert.Equal(t, "5", r.String("n"))
	assert.Equal(t, "", r.String("missing"))
	assert.Equal(t, 5, r.Int("n"))
	assert.Equal(t, 0, r.Int("s"))
	assert.True(t, r.Bool("b"))
	assert.Equal(t, "v", r.Record("o").String("k"))
	assert.Nil(t, r.Record("s"))
	assert.Len(t, r.Records("arr"), 2)
	assert.Nil(t, r.Records("missing"))
}

func TestCreateObjects_PreservesOrder(t *testing.T) {
	records := []Record{
		{"id": "1", "name": "first"},
		{"id": "2", "name": "second"},
		{"id": "3", "name": "third"},
	}

	objs, err := CreateObjects(records, KindUser)
	require.NoError(t, err)
	require.Len(t, objs, 3)
	for i, obj := range objs {
		u, ok := obj.(*User)
		require.True(t, ok, "object %d is %T", i, obj)
		assert.Equal(t, records[i]["id"], u.ID)
		assert.Equal(t, records[i]["name"], u.Name)
	}

	// Each instance is independent
	objs[0].(*User).Name = "changed"
	assert.Equal(t, "second", objs[1].(*User).Name)
}

func TestCreateObjects_UnknownKind(t *testing.T) {
	_, err := CreateObjects([]Record{{"id": "1"}}, Kind("page"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConstruction))
}

func TestCreateObjects_Empty(t *testing.T) {
	objs, err := CreateObjects(nil, KindPost)
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestConvertAll(t *testing.T) {
	photos, err := ConvertAll([]Record{{"id": "a"}, {"id": "b"}}, func() *Photo { return &Photo{} })
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "a", photos[0].ID)
	assert.Equal(t, "b", photos[1].ID)

	_, err = ConvertAll[*Photo]([]Record{{"id": "a"}}, nil)
	assert.ErrorIs(t, err, ErrConstruction)

	_, err = ConvertAll([]Record{{"id": "a"}}, func() *Album { return nil })
	assert.ErrorIs(t, err, ErrConstruction)
}

func TestList(t *testing.T) {
	l := NewList()
	l.Add(Record{"id": "1"}, Record{"id": "2"})
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, "2", l.At(1).String("id"))
	assert.Nil(t, l.At(5))

	items := l.Items()
	items[0] = Record{"id": "x"}
	assert.Equal(t, "1", l.At(0).String("id"))

	l.Reset()
	assert.Equal(t, 0, l.Len())
}
