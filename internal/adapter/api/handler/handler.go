package handler

import (
	"uninest/internal/usecase"
)

var (
	authHandler     *AuthHandler
	userHandler     *UserHandler
	listingHandler  *ListingHandler
	favoriteHandler *FavoriteHandler
	chatHandler     *ChatHandler
)

func Setup(
	authUseCase *usecase.AuthUseCase,
	listingUseCase *usecase.ListingUseCase,
	favoriteUseCase *usecase.FavoriteUseCase,
	chatUseCase *usecase.ChatUseCase,
) {
	authHandler = NewAuthHandler(authUseCase)
	userHandler = NewUserHandler(authUseCase)
	listingHandler = NewListingHandler(listingUseCase)
	favoriteHandler = NewFavoriteHandler(favoriteUseCase)
	chatHandler = NewChatHandler(chatUseCase)
}

func GetAuthHandler() *AuthHandler {
	return authHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetListingHandler() *ListingHandler {
	return listingHandler
}

func GetFavoriteHandler() *FavoriteHandler {
	return favoriteHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}
