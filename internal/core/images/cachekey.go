package images

// TempPrefix marks a cache key whose image has not been promoted to permanent storage.
const TempPrefix = "temp"

// CacheKey decides where a picture for id is cached. A temporary fetch is stored under
// TempPrefix+id unless a permanent copy already exists under id, so a later permanent
// fetch is never shadowed by the temporary entry.
func CacheKey(storage Storage, id string, temp bool) string {
	if temp && (storage == nil || !storage.Exists(id)) {
		return TempPrefix + id
	}
	return id
}
