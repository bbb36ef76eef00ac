// Package models defines the core domain records for YouOwe.
//
// # Records
//
//   - Member: a participant, linked 1:1 to an identity at the external auth provider
//   - Group: a shared expense pool with an optional join password and a closed flag
//   - MemberGroup: one row per (member, group) membership
//   - Order: a single shared expense within a Group, split among participant Members
//
// # Conventions
//
//  1. Records hold attributes only; the rules live in the service package.
//  2. Relationships are ID strings (UUID format), never pointers.
//  3. Timestamps are Unix seconds. DeletedAt is nil while a record is active; records
//     are soft-deleted and a deleted record behaves exactly like a missing one.
//  4. A Group's password hash never leaves the storage and service layers. Anything
//     rendered to a client goes through GroupView, which has no password field.
package models
