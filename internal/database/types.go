package database

type progressRow struct {
	Module  string `db:"module"`
	Percent int    `db:"percent"`
}
