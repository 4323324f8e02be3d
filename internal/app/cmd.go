package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe は俳優・映画の両方を提供するAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandActors は俳優APIのみを提供するサーバーとして起動することを示す。
	CommandActors Command = "actors"
	// CommandMovies は映画APIのみを提供するサーバーとして起動することを示す。
	CommandMovies Command = "movies"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "actors":
		return CommandActors
	case "movies":
		return CommandMovies
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// serviceKinds はサーバーが提供するエンティティ種別。
type serviceKinds struct {
	actors bool
	movies bool
}

// kindsFor はサーバー系コマンドが提供するエンティティ種別を返す。
func kindsFor(cmd Command) serviceKinds {
	switch cmd {
	case CommandActors:
		return serviceKinds{actors: true}
	case CommandMovies:
		return serviceKinds{movies: true}
	default:
		return serviceKinds{actors: true, movies: true}
	}
}
