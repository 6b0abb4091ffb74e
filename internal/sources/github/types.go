package github

// Repository is the subset of the GitHub repository resource the updater reads.
type Repository struct {
	StargazersCount int64    `json:"stargazers_count"`
	Language        string   `json:"language"`
	License         *License `json:"license"`
}

// License identifies the repository license by SPDX identifier.
type License struct {
	SPDXID string `json:"spdx_id"`
}

// Commit is a single element of the repository commit list.
type Commit struct {
	Commit CommitDetail `json:"commit"`
}

// CommitDetail carries the commit metadata the updater reads.
type CommitDetail struct {
	Committer CommitActor `json:"committer"`
}

// CommitActor is the committer stamp on a commit.
type CommitActor struct {
	Date string `json:"date"` // "2024-03-01T12:00:00Z"
}
