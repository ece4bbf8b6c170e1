package main

func main() {
	app := mustBootstrapAPI()
	defer app.Close()

	if err := app.Run(); err != nil && !isCanceled(err) {
		panic(err)
	}
}
