package common

// PageSize is the fixed number of issues returned per ListIssues page.
const PageSize = 10

// AuthorizationHeaderName carries the bearer access token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// IssueChannelPrefix prefixes the per-issue pub/sub channel names.
const IssueChannelPrefix = "civicsync:issue:"
