// Package store persists workspaces, OAuth app credentials and user tokens.
//
// Two backends implement [Store]:
//   - [FileStore] keeps three JSON documents (config.json, oauth-config.json,
//     user-tokens.json) in the configuration directory and rewrites the whole
//     document on every mutation.
//   - [Bolt] keeps the same records in a single bbolt database, one bucket
//     per record type.
//
// Use [Open] to get the backend selected by configuration:
//
//	st, err := store.Open(store.BackendFile, dir)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
package store
