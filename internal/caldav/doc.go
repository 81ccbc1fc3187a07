// Package caldav pushes upcoming ledger events to a CalDAV calendar such as
// iCloud, Fastmail or Nextcloud.
package caldav
