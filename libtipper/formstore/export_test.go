package formstore

// WriteRaw stores raw under the form key, bypassing encoding.
func WriteRaw(s *Store, raw string) error {
	return s.db.put(s.key, []byte(raw))
}
