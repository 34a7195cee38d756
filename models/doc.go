// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

  - UserProfile: id, username, role, batch assignment, audit stamps
  - TextItem: immutable text with fixed batch membership
  - Classification: append-only submission record
  - Draft: the uncommitted choice for the displayed item

# Request Types

  - SignInRequest: username, password
  - CreateUserRequest: username, password, role, assigned_batch_id
  - AddTextsRequest: batch_id, texts
  - SelectCategoryRequest, FlagNotesRequest, KeyRequest

# Response Types

  - SignInResponse: token, user
  - AnnotationState: waiting, position, total, item, draft, prior_submissions
  - CommitResponse, KeyResponse
  - UserSummary: profile + progress counts for the admin view
  - FlaggedItem: flagged classification joined to a username
  - ErrorResponse: error, message

# Constants

Roles:

	RoleAdmin = "admin"
	RoleCoder = "coder"

Categories are the closed set 1-4; ValidCategory checks membership and
CategoryNames maps ids to display labels.
*/
package models
