package graph

import "fmt"

// Kind names a mappable object type.
type Kind string

const (
	KindObject  Kind = "object"
	KindUser    Kind = "user"
	KindPost    Kind = "post"
	KindPhoto   Kind = "photo"
	KindAlbum   Kind = "album"
	KindComment Kind = "comment"
)

// constructors is the registry of typed object constructors.
var constructors = map[Kind]func() Object{
	KindObject:  func() Object { return &FBObject{} },
	KindUser:    func() Object { return &User{} },
	KindPost:    func() Object { return &Post{} },
	KindPhoto:   func() Object { return &Photo{} },
	KindAlbum:   func() Object { return &Album{} },
	KindComment: func() Object { return &Comment{} },
}

// New returns a fresh, empty object of the given kind.
func New(kind Kind) (Object, error) {
	ctor, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrConstruction, kind)
	}
	return ctor(), nil
}

// CreateObjects converts every record into a new object of the given kind, preserving
// order. A construction failure fails the whole conversion.
func CreateObjects(records []Record, kind Kind) ([]Object, error) {
	out := make([]Object, 0, len(records))
	for i, rec := range records {
		obj, err := New(kind)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		obj.Copy(rec)
		out = append(out, obj)
	}
	return out, nil
}

// ConvertAll is the typed form of CreateObjects.
func ConvertAll[T Object](records []Record, newFn func() T) ([]T, error) {
	if newFn == nil {
		return nil, fmt.Errorf("%w: nil constructor", ErrConstruction)
	}
	out := make([]T, 0, len(records))
	for i, rec := range records {
		obj := newFn()
		if isNil(obj) {
			return nil, fmt.Errorf("%w: constructor returned nil for record %d", ErrConstruction, i)
		}
		obj.Copy(rec)
		out = append(out, obj)
	}
	return out, nil
}

func isNil(o Object) bool {
	if o == nil {
		return true
	}
	switch v := o.(type) {
	case *FBObject:
		return v == nil
	case *User:
		return v == nil
	case *Post:
		return v == nil
	case *Photo:
		return v == nil
	case *Album:
		return v == nil
	case *Comment:
		return v == nil
	}
	return false
}
